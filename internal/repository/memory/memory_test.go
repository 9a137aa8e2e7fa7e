package memory_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/repository"
	"tourledger-backend/internal/repository/memory"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seedWallet(t *testing.T, s *memory.Store, id string, balance int64) {
	t.Helper()
	_, err := s.Repos().Wallets.EnsureWallet(context.Background(), &domain.Wallet{
		ID: id, OwnerType: domain.OwnerTypeGuide, OwnerID: "owner-" + id, Balance: balance, CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit Publishes Changes", func(t *testing.T) {
		s := memory.NewStore()
		seedWallet(t, s, "w1", 100)

		err := s.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return repos.Wallets.UpdateBalance(ctx, "w1", 250, t0.Add(time.Minute))
		})
		require.NoError(t, err)

		w, err := s.Repos().Wallets.GetWallet(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, int64(250), w.Balance)
		assert.Equal(t, t0.Add(time.Minute), w.UpdatedAt)
	})

	t.Run("Error Discards Every Write", func(t *testing.T) {
		s := memory.NewStore()
		seedWallet(t, s, "w1", 100)

		boom := errors.New("boom")
		err := s.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			require.NoError(t, repos.Wallets.UpdateBalance(ctx, "w1", 0, t0))
			require.NoError(t, repos.Transactions.AppendTransaction(ctx, &domain.Transaction{
				ID: "tx-1", WalletID: "w1", Amount: -100, Type: domain.TransactionTypeAdjustment, Status: domain.TransactionStatusApproved,
			}))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		w, _ := s.Repos().Wallets.GetWallet(ctx, "w1")
		assert.Equal(t, int64(100), w.Balance)
		_, err = s.Repos().Transactions.GetTransaction(ctx, "tx-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		s := memory.NewStore()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := s.RunInTx(cctx, func(ctx context.Context, repos repository.Repositories) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestWallets(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	repos := s.Repos()
	seedWallet(t, s, "w1", 100)

	t.Run("Ensure Returns Existing Owner Wallet", func(t *testing.T) {
		w, err := repos.Wallets.EnsureWallet(ctx, &domain.Wallet{ID: "other", OwnerType: domain.OwnerTypeGuide, OwnerID: "owner-w1"})
		require.NoError(t, err)
		assert.Equal(t, "w1", w.ID)
	})

	t.Run("Floor Enforced", func(t *testing.T) {
		err := repos.Wallets.UpdateBalance(ctx, "w1", -1, t0)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

		require.NoError(t, repos.Wallets.UpdateCreditLimit(ctx, "w1", 50, t0))
		assert.NoError(t, repos.Wallets.UpdateBalance(ctx, "w1", -50, t0))
		assert.ErrorIs(t, repos.Wallets.UpdateCreditLimit(ctx, "w1", 10, t0), domain.ErrInsufficientBalance)
	})

	t.Run("Returned Wallet Is A Copy", func(t *testing.T) {
		w, err := repos.Wallets.GetWallet(ctx, "w1")
		require.NoError(t, err)
		w.Balance = 1 << 40
		again, _ := repos.Wallets.GetWallet(ctx, "w1")
		assert.NotEqual(t, w.Balance, again.Balance)
	})

	t.Run("Keyset Paging", func(t *testing.T) {
		seedWallet(t, s, "w3", 0)
		seedWallet(t, s, "w2", 0)

		page, err := repos.Wallets.ListWallets(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, []string{"w1", "w2"}, []string{page[0].ID, page[1].ID})

		page, err = repos.Wallets.ListWallets(ctx, "w2", 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "w3", page[0].ID)
	})
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	repos := s.Repos()
	seedWallet(t, s, "w1", 0)

	pending := &domain.Transaction{
		ID: "wd-1", WalletID: "w1", Amount: -100, Type: domain.TransactionTypeWithdrawRequest,
		Status: domain.TransactionStatusPending, CreatedAt: t0,
		Destination: &domain.PayoutDestination{Method: "bank_transfer", AccountNumber: "1234"},
	}
	require.NoError(t, repos.Transactions.AppendTransaction(ctx, pending))

	t.Run("One Pending Withdrawal Per Wallet", func(t *testing.T) {
		err := repos.Transactions.AppendTransaction(ctx, &domain.Transaction{
			ID: "wd-2", WalletID: "w1", Type: domain.TransactionTypeWithdrawRequest, Status: domain.TransactionStatusPending,
		})
		var dup *domain.DuplicateRequestError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "wd-1", dup.ExistingID)
	})

	t.Run("Earning Reference Unique", func(t *testing.T) {
		earning := &domain.Transaction{
			ID: "e-1", WalletID: "w1", Amount: 10, Type: domain.TransactionTypeEarning, Status: domain.TransactionStatusCompleted,
			ReferenceType: "booking", ReferenceID: "bk-1", CreatedAt: t0.Add(time.Minute),
		}
		require.NoError(t, repos.Transactions.AppendTransaction(ctx, earning))
		replay := *earning
		replay.ID = "e-2"
		assert.ErrorIs(t, repos.Transactions.AppendTransaction(ctx, &replay), domain.ErrDuplicatePendingRequest)

		found, err := repos.Transactions.FindByReference(ctx, "w1", domain.TransactionTypeEarning, domain.Reference{Type: "booking", ID: "bk-1"})
		require.NoError(t, err)
		assert.Equal(t, "e-1", found.ID)
	})

	t.Run("Destination Is Deep Copied", func(t *testing.T) {
		got, err := repos.Transactions.GetTransaction(ctx, "wd-1")
		require.NoError(t, err)
		got.Destination.AccountNumber = "tampered"
		again, _ := repos.Transactions.GetTransaction(ctx, "wd-1")
		assert.Equal(t, "1234", again.Destination.AccountNumber)
	})

	t.Run("Resolve Once", func(t *testing.T) {
		before, after := int64(10), int64(-90)
		now := t0.Add(time.Hour)
		resolved := *pending
		resolved.Type = domain.TransactionTypeWithdrawApproved
		resolved.Status = domain.TransactionStatusApproved
		resolved.BalanceBefore, resolved.BalanceAfter = &before, &after
		resolved.ResolvedAt = &now
		require.NoError(t, repos.Transactions.ResolveTransaction(ctx, &resolved))

		resolved.Status = domain.TransactionStatusRejected
		err := repos.Transactions.ResolveTransaction(ctx, &resolved)
		assert.EqualError(t, err, "invalid transition: approved -> rejected")

		open, err := repos.Transactions.FindPendingWithdrawal(ctx, "w1")
		require.NoError(t, err)
		assert.Nil(t, open)
	})

	t.Run("Sum And List", func(t *testing.T) {
		sum, count, err := repos.Transactions.SumCommitted(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, int64(-90), sum)
		assert.Equal(t, 2, count)

		txs, total, err := repos.Transactions.ListTransactions(ctx, domain.TransactionFilter{WalletID: "w1", PageSize: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, txs, 1)
		assert.Equal(t, "e-1", txs[0].ID)

		txs, _, err = repos.Transactions.ListTransactions(ctx, domain.TransactionFilter{WalletID: "w1", Page: 5, PageSize: 1})
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("Huge Page Is Empty", func(t *testing.T) {
		txs, total, err := repos.Transactions.ListTransactions(ctx, domain.TransactionFilter{WalletID: "w1", Page: math.MaxInt32, PageSize: 50})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Empty(t, txs)
	})
}

func TestRefunds(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repos()

	ref := &domain.RefundRequest{ID: "rf-1", BookingID: "bk-1", Status: domain.RefundStatusPending}
	require.NoError(t, repos.Refunds.CreateRefund(ctx, ref))
	assert.ErrorIs(t, repos.Refunds.CreateRefund(ctx, &domain.RefundRequest{ID: "rf-2", BookingID: "bk-1"}), domain.ErrDuplicatePendingRequest)

	rejected := *ref
	rejected.Status = domain.RefundStatusRejected
	assert.ErrorIs(t, repos.Refunds.UpdateRefundStatus(ctx, &rejected, domain.RefundStatusApproved), domain.ErrInvalidTransition)
	require.NoError(t, repos.Refunds.UpdateRefundStatus(ctx, &rejected, domain.RefundStatusPending))

	active, err := repos.Refunds.FindActiveRefund(ctx, "bk-1")
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.NoError(t, repos.Refunds.CreateRefund(ctx, &domain.RefundRequest{ID: "rf-3", BookingID: "bk-1", Status: domain.RefundStatusPending}))

	require.NoError(t, repos.Refunds.AppendAction(ctx, &domain.RefundActionLog{ID: "a2", RefundID: "rf-1", CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, repos.Refunds.AppendAction(ctx, &domain.RefundActionLog{ID: "a1", RefundID: "rf-1", CreatedAt: t0}))
	require.NoError(t, repos.Refunds.AppendAction(ctx, &domain.RefundActionLog{ID: "x", RefundID: "rf-3", CreatedAt: t0}))
	actions, err := repos.Refunds.ListActions(ctx, "rf-1")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "a1", actions[0].ID)
}
