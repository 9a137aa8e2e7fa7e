package service_test

import (
	"context"
	"testing"
	"time"

	"tourledger-backend/internal/clock"
	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/metrics"
	"tourledger-backend/internal/repository/memory"
	"tourledger-backend/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store       *memory.Store
	clock       *clock.FixedClock
	notifier    *MockNotifier
	alerter     *MockAlerter
	metrics     *metrics.Metrics
	dispatcher  *service.Dispatcher
	balances    service.BalanceService
	withdrawals service.WithdrawalService
	refunds     service.RefundService
	reconciler  service.ReconciliationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewFixedClock(testNow)
	notifier := new(MockNotifier)
	notifier.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	alerter := new(MockAlerter)
	m := metrics.New(prometheus.NewRegistry())
	dispatcher := service.NewDispatcher(notifier, time.Second, m)
	t.Cleanup(dispatcher.Wait)

	deps := service.Deps{
		Store:      store,
		Clock:      clk,
		Dispatcher: dispatcher,
		Metrics:    m,
		Alerter:    alerter,
	}
	return &testEnv{
		store:       store,
		clock:       clk,
		notifier:    notifier,
		alerter:     alerter,
		metrics:     m,
		dispatcher:  dispatcher,
		balances:    service.NewBalanceService(deps),
		withdrawals: service.NewWithdrawalService(deps),
		refunds:     service.NewRefundService(deps),
		reconciler:  service.NewReconciliationService(deps, 2),
	}
}

// fund credits a fresh guide wallet through the ledger so reconciliation holds.
func (e *testEnv) fund(t *testing.T, ownerID string, amount int64) *domain.Wallet {
	t.Helper()
	ctx := context.Background()
	tx, err := e.balances.RecordEarning(ctx, service.EarningInput{
		OwnerType: domain.OwnerTypeGuide,
		OwnerID:   ownerID,
		Amount:    amount,
		Reference: domain.Reference{Type: "booking", ID: "seed-" + ownerID},
	})
	require.NoError(t, err)
	w, err := e.store.Repos().Wallets.GetWallet(ctx, tx.WalletID)
	require.NoError(t, err)
	return w
}

func (e *testEnv) seedPolicies(t *testing.T) {
	t.Helper()
	for _, p := range []domain.CancellationPolicy{
		{ID: "p-full", Name: "full_refund", DaysBeforeTrip: 7, RefundPercentage: decimal.NewFromInt(100), Active: true},
		{ID: "p-half", Name: "half_refund", DaysBeforeTrip: 3, RefundPercentage: decimal.NewFromInt(50), Active: true},
		{ID: "p-none", Name: "no_refund", DaysBeforeTrip: 0, RefundPercentage: decimal.Zero, Active: true},
	} {
		p := p
		require.NoError(t, e.store.Repos().Policies.UpsertPolicy(context.Background(), &p))
	}
}

func strPtr(s string) *string { return &s }

func bankDestination() domain.PayoutDestination {
	return domain.PayoutDestination{
		Method:        "bank_transfer",
		AccountName:   "Ana Guide",
		AccountNumber: "1234567890",
		BankName:      "BCA",
	}
}
