package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	t.Run("Insufficient balance message", func(t *testing.T) {
		err := &InsufficientBalanceError{Requested: 600000, Available: 500000}
		assert.Equal(t, "insufficient balance: requested 600000, available 500000", err.Error())
		assert.True(t, errors.Is(err, ErrInsufficientBalance))
		assert.False(t, errors.Is(err, ErrValidation))
	})

	t.Run("Wrapped errors keep their kind", func(t *testing.T) {
		err := fmt.Errorf("approve withdrawal: %w", &InvalidTransitionError{Current: "approved", Requested: "approved"})
		assert.True(t, errors.Is(err, ErrInvalidTransition))

		var te *InvalidTransitionError
		assert.True(t, errors.As(err, &te))
		assert.Equal(t, "approved", te.Current)
	})

	t.Run("Validation", func(t *testing.T) {
		err := NewValidationError("amount", "must be positive")
		assert.Equal(t, "invalid amount: must be positive", err.Error())
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Not found", func(t *testing.T) {
		err := NewNotFoundError("wallet", "w-1")
		assert.Equal(t, "wallet not found: w-1", err.Error())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := &DuplicateRequestError{Key: "wallet w-1", ExistingID: "tx-9"}
		assert.ErrorIs(t, err, ErrDuplicatePendingRequest)
		assert.Contains(t, err.Error(), "tx-9")
	})
}

func TestWallet(t *testing.T) {
	w := &Wallet{Balance: 100, CreditLimit: 50}
	assert.Equal(t, int64(150), w.Available())
	assert.True(t, w.CanApply(-150))
	assert.False(t, w.CanApply(-151))
}

func TestTransaction_Commit(t *testing.T) {
	tx := &Transaction{Amount: -400000}
	tx.Commit(1000000)
	assert.Equal(t, int64(1000000), *tx.BalanceBefore)
	assert.Equal(t, int64(600000), *tx.BalanceAfter)
	assert.Equal(t, tx.Amount, *tx.BalanceAfter-*tx.BalanceBefore)
}

func TestRefundAction_Target(t *testing.T) {
	to, ok := RefundActionComplete.Target()
	assert.True(t, ok)
	assert.Equal(t, RefundStatusCompleted, to)

	_, ok = RefundAction("cancel").Target()
	assert.False(t, ok)
}

func TestTransactionFilter_Offset(t *testing.T) {
	f := TransactionFilter{Page: 3, PageSize: 20}
	assert.Equal(t, int64(40), f.Offset())

	f = TransactionFilter{Page: math.MaxInt32, PageSize: 200}
	assert.Equal(t, int64(math.MaxInt32-1)*200, f.Offset())

	f = TransactionFilter{Page: -4, PageSize: 20}
	assert.Equal(t, int64(0), f.Offset())
}
