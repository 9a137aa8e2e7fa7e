package service

import (
	"context"
	"errors"
	"time"

	"tourledger-backend/internal/clock"
	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/metrics"
	"tourledger-backend/internal/repository"
	"tourledger-backend/internal/statemachine"

	"github.com/google/uuid"
)

var (
	withdrawalMachine = statemachine.New("withdrawal", domain.WithdrawalTransitions)
	refundMachine     = statemachine.New("refund", domain.RefundTransitions)
)

const financeRole = "finance"

var financeRecipient = domain.Recipient{Role: financeRole}

// Deps are the collaborators shared by the ledger services.
type Deps struct {
	Store      repository.Store
	Clock      clock.Clock
	Dispatcher *Dispatcher
	Metrics    *metrics.Metrics
	Alerter    Alerter
}

type core struct {
	store   repository.Store
	clock   clock.Clock
	notify  *Dispatcher
	metrics *metrics.Metrics
}

func newCore(d Deps) core {
	clk := d.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	return core{
		store:   d.Store,
		clock:   clk,
		notify:  d.Dispatcher,
		metrics: d.Metrics,
	}
}

func (c *core) runInTx(ctx context.Context, fn repository.TxFunc) error {
	err := c.store.RunInTx(ctx, fn)
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		c.metrics.ObserveConflict()
	}
	return err
}

// applyDelta is the locked read-modify-write shared by every balance mutation.
// wallet must have been loaded with GetWalletForUpdate (or EnsureWallet) in
// the same unit of work. tx.Amount is applied and the committed snapshots are
// written onto tx; the caller persists tx.
func applyDelta(ctx context.Context, repos repository.Repositories, wallet *domain.Wallet, tx *domain.Transaction, now time.Time) error {
	if !wallet.CanApply(tx.Amount) {
		return &domain.InsufficientBalanceError{Requested: -tx.Amount, Available: wallet.Available()}
	}
	tx.Commit(wallet.Balance)
	if err := repos.Wallets.UpdateBalance(ctx, wallet.ID, *tx.BalanceAfter, now); err != nil {
		return err
	}
	wallet.Balance = *tx.BalanceAfter
	wallet.UpdatedAt = now
	return nil
}

// isExpected reports business rejections that callers are told about
// synchronously, as opposed to infrastructure failures.
func isExpected(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInsufficientBalance) ||
		errors.Is(err, domain.ErrDuplicatePendingRequest) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrNotFound)
}

func newID() string {
	return uuid.NewString()
}

func ownerRecipient(w *domain.Wallet) domain.Recipient {
	return domain.Recipient{OwnerType: w.OwnerType, OwnerID: w.OwnerID}
}

func validateWalletID(id string) error {
	return validateID("wallet_id", id)
}

// validateID rejects identifiers the UUID key columns could never hold.
func validateID(field, id string) error {
	if id == "" {
		return domain.NewValidationError(field, "is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewValidationError(field, "must be a UUID")
	}
	return nil
}
