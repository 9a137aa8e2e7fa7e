package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourledger-backend/internal/domain"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeInvalidText          = "22P02"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	constraintPendingWithdrawal = "idx_wallet_transactions_one_pending_withdrawal"
	constraintEarningReference  = "idx_wallet_transactions_earning_reference"
	constraintActiveRefund      = "idx_refund_requests_active_booking"
	constraintWalletOwner       = "wallets_owner_key"
	constraintBalanceFloor      = "wallets_balance_floor"
)

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}

// translateError maps constraint violations onto the domain taxonomy. key
// names the guarded resource in the resulting message. Retryable errors are
// wrapped unchanged so RunInTx can still detect them.
func translateError(err error, op, key string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == codeUniqueViolation:
			switch pqErr.Constraint {
			case constraintPendingWithdrawal, constraintEarningReference, constraintActiveRefund, constraintWalletOwner:
				return &domain.DuplicateRequestError{Key: key}
			}
		case pqErr.Code == codeCheckViolation && pqErr.Constraint == constraintBalanceFloor:
			return fmt.Errorf("%s: %w", op, domain.ErrInsufficientBalance)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// notFound also covers ids a UUID column cannot parse: no such row can exist.
func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeInvalidText {
		return domain.NewNotFoundError(entity, id)
	}
	return translateError(err, "load "+entity, id)
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func expectOneRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundError(entity, id)
	}
	return nil
}
