package postgres_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tourledger-backend/internal/repository/postgres"
)

var (
	testTime        = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	walletCols      = []string{"id", "owner_type", "owner_id", "balance", "credit_limit", "created_at", "updated_at"}
	walletID        = "7b0e5a1c-2f0d-4a59-9f53-1f1f3f0e2a11"
	transactionCols = []string{"id", "wallet_id", "amount", "type", "status", "balance_before", "balance_after",
		"reference_type", "reference_id", "actor_id", "description",
		"payout_method", "payout_account_name", "payout_account_number", "payout_bank_name",
		"created_at", "resolved_at", "resolved_by"}
)

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return postgres.NewStore(db, postgres.RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}), mock
}
