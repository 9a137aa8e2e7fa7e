package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWithdrawalService_RequestWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("Insufficient Balance", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.fund(t, "guide-1", 500000)

		res, err := env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
			WalletID: w.ID, Amount: 600000, Destination: bankDestination(), ActorID: strPtr("guide-1"),
		})
		assert.Nil(t, res)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		assert.Equal(t, "insufficient balance: requested 600000, available 500000", err.Error())
	})

	t.Run("Creates Pending Request Without Touching Balance", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.fund(t, "guide-1", 1000000)

		req, err := env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
			WalletID: w.ID, Amount: 400000, Destination: bankDestination(), ActorID: strPtr("guide-1"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeWithdrawRequest, req.Type)
		assert.Equal(t, domain.TransactionStatusPending, req.Status)
		assert.Equal(t, int64(-400000), req.Amount)
		assert.Nil(t, req.BalanceBefore)
		assert.Nil(t, req.BalanceAfter)
		assert.Equal(t, "Withdrawal to bank_transfer ******7890", req.Description)

		view, err := env.balances.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1000000), view.Balance)

		env.dispatcher.Wait()
		env.notifier.AssertCalled(t, "Send", mock.Anything, domain.Recipient{Role: "finance"},
			mock.MatchedBy(func(n domain.Notification) bool {
				return n.Type == domain.NotificationTypeWithdrawalRequested && n.Attributes["request_id"] == req.ID
			}))
	})

	t.Run("Second Request Is Duplicate", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.fund(t, "guide-1", 1000000)
		first, err := env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
			WalletID: w.ID, Amount: 100, Destination: bankDestination(),
		})
		require.NoError(t, err)

		for _, amount := range []int64{100, 1, 999999, 5000000} {
			_, err := env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
				WalletID: w.ID, Amount: amount, Destination: bankDestination(),
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDuplicatePendingRequest)
			var dup *domain.DuplicateRequestError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, first.ID, dup.ExistingID)
		}
	})

	t.Run("Concurrent Requests Yield One Pending", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.fund(t, "guide-1", 1000000)

		const n = 8
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
					WalletID: w.ID, Amount: 1000, Destination: bankDestination(),
				})
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrDuplicatePendingRequest)
		}
		assert.Equal(t, 1, ok)
	})

	t.Run("Validation", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.fund(t, "guide-1", 1000)
		cases := []service.WithdrawalInput{
			{WalletID: w.ID, Amount: 0, Destination: bankDestination()},
			{WalletID: w.ID, Amount: -5, Destination: bankDestination()},
			{WalletID: w.ID, Amount: 5, Destination: domain.PayoutDestination{Method: "bank_transfer", AccountName: "A", AccountNumber: "1"}},
			{WalletID: w.ID, Amount: 5, Destination: domain.PayoutDestination{Method: "e_wallet", AccountName: "A"}},
			{WalletID: w.ID, Amount: 5},
			{WalletID: "", Amount: 5, Destination: bankDestination()},
		}
		for i, in := range cases {
			_, err := env.withdrawals.RequestWithdrawal(ctx, in)
			assert.ErrorIs(t, err, domain.ErrValidation, "case %d", i)
		}
		pending, _, err := env.withdrawals.ListPendingWithdrawals(ctx, 1, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestWithdrawalService_ResolveWithdrawal(t *testing.T) {
	ctx := context.Background()

	request := func(t *testing.T, env *testEnv, balance, amount int64) (*domain.Wallet, *domain.Transaction) {
		t.Helper()
		w := env.fund(t, "guide-1", balance)
		req, err := env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
			WalletID: w.ID, Amount: amount, Destination: bankDestination(), ActorID: strPtr("guide-1"),
		})
		require.NoError(t, err)
		return w, req
	}

	t.Run("Approve Debits Wallet", func(t *testing.T) {
		env := newTestEnv(t)
		w, req := request(t, env, 1000000, 400000)

		res, err := env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: req.ID, Decision: service.DecisionApprove, ApproverID: "fin-1",
		})
		require.NoError(t, err)
		assert.Equal(t, req.ID, res.ID)
		assert.Equal(t, domain.TransactionStatusApproved, res.Status)
		assert.Equal(t, domain.TransactionTypeWithdrawApproved, res.Type)
		assert.Equal(t, int64(1000000), *res.BalanceBefore)
		assert.Equal(t, int64(600000), *res.BalanceAfter)
		assert.Equal(t, "fin-1", *res.ResolvedBy)

		view, err := env.balances.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(600000), view.Balance)
		assert.Zero(t, view.PendingWithdrawal)

		stored, err := env.store.Repos().Transactions.GetTransaction(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusApproved, stored.Status)
		assert.Equal(t, int64(600000), *stored.BalanceAfter)
	})

	t.Run("Reject Leaves Balance", func(t *testing.T) {
		env := newTestEnv(t)
		w, req := request(t, env, 1000000, 400000)

		res, err := env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: req.ID, Decision: service.DecisionReject, ApproverID: "fin-1", Reason: "account mismatch",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusRejected, res.Status)
		assert.Equal(t, domain.TransactionTypeRejected, res.Type)
		assert.Nil(t, res.BalanceAfter)
		assert.Contains(t, res.Description, "account mismatch")

		view, err := env.balances.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1000000), view.Balance)

		// A rejected request frees the wallet for a new one.
		_, err = env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
			WalletID: w.ID, Amount: 100, Destination: bankDestination(),
		})
		assert.NoError(t, err)
	})

	t.Run("Resolving Twice Is Invalid Transition", func(t *testing.T) {
		env := newTestEnv(t)
		w, req := request(t, env, 1000000, 400000)
		_, err := env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: req.ID, Decision: service.DecisionApprove, ApproverID: "fin-1",
		})
		require.NoError(t, err)

		for _, d := range []service.Decision{service.DecisionApprove, service.DecisionReject} {
			_, err = env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
				RequestID: req.ID, Decision: d, ApproverID: "fin-2",
			})
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		}
		view, err := env.balances.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(600000), view.Balance)
	})

	t.Run("Approval Revalidates Funds", func(t *testing.T) {
		env := newTestEnv(t)
		w, req := request(t, env, 1000, 800)
		_, err := env.balances.ApplyAdjustment(ctx, service.AdjustmentInput{
			WalletID: w.ID, Amount: -500, Type: domain.TransactionTypeCorrection, Reason: "refund clawback",
		})
		require.NoError(t, err)

		_, err = env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: req.ID, Decision: service.DecisionApprove, ApproverID: "fin-1",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

		stored, err := env.store.Repos().Transactions.GetTransaction(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusPending, stored.Status)
		view, err := env.balances.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(500), view.Balance)
	})

	t.Run("Requester Cannot Approve", func(t *testing.T) {
		env := newTestEnv(t)
		_, req := request(t, env, 1000, 100)
		_, err := env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: req.ID, Decision: service.DecisionApprove, ApproverID: "guide-1",
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Unknown Decision", func(t *testing.T) {
		env := newTestEnv(t)
		_, req := request(t, env, 1000, 100)
		_, err := env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: req.ID, Decision: "escalate", ApproverID: "fin-1",
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Malformed Request ID", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: "abc", Decision: service.DecisionApprove, ApproverID: "fin-1",
		})
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "request_id", ve.Field)
	})

	t.Run("Unknown Request ID", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: uuid.NewString(), Decision: service.DecisionApprove, ApproverID: "fin-1",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Non Withdrawal Row", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.fund(t, "guide-1", 1000)
		txs, _, err := env.balances.ListTransactions(ctx, domain.TransactionFilter{WalletID: w.ID})
		require.NoError(t, err)
		require.Len(t, txs, 1)

		_, err = env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: txs[0].ID, Decision: service.DecisionApprove, ApproverID: "fin-1",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Notification Failure Does Not Revert Approval", func(t *testing.T) {
		env := newTestEnv(t)
		w, req := request(t, env, 1000, 400)
		env.dispatcher.Wait()
		env.notifier.ExpectedCalls = nil
		env.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		res, err := env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: req.ID, Decision: service.DecisionApprove, ApproverID: "fin-1",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusApproved, res.Status)
		env.dispatcher.Wait()
		env.notifier.AssertCalled(t, "Send", mock.Anything, domain.Recipient{OwnerType: domain.OwnerTypeGuide, OwnerID: "guide-1"},
			mock.MatchedBy(func(n domain.Notification) bool { return n.Type == domain.NotificationTypeWithdrawalApproved }))

		view, err := env.balances.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(600), view.Balance)
	})
}

func TestWithdrawalService_ConcurrentApprovals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	w := env.fund(t, "guide-1", 1000000)
	req, err := env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
		WalletID: w.ID, Amount: 800000, Destination: bankDestination(), ActorID: strPtr("guide-1"),
	})
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
				RequestID:  req.ID,
				Decision:   service.DecisionApprove,
				ApproverID: fmt.Sprintf("fin-%d", i),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrInsufficientBalance), err.Error())
	}
	assert.Equal(t, 1, succeeded)

	view, err := env.balances.GetBalance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), view.Balance)
}

func TestWithdrawalService_ApprovalRacesAdjustment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	w := env.fund(t, "guide-1", 500)
	req, err := env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
		WalletID: w.ID, Amount: 400, Destination: bankDestination(),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var approveErr, adjustErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = env.withdrawals.ResolveWithdrawal(ctx, service.ResolveInput{
			RequestID: req.ID, Decision: service.DecisionApprove, ApproverID: "fin-1",
		})
	}()
	go func() {
		defer wg.Done()
		_, adjustErr = env.balances.ApplyAdjustment(ctx, service.AdjustmentInput{
			WalletID: w.ID, Amount: -300, Type: domain.TransactionTypeAdjustment, Reason: "penalty",
		})
	}()
	wg.Wait()

	// Whichever commits first leaves too little for the other.
	assert.True(t, (approveErr == nil) != (adjustErr == nil))
	view, err := env.balances.GetBalance(ctx, w.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, view.Balance+view.CreditLimit, int64(0))
	if approveErr == nil {
		assert.Equal(t, int64(100), view.Balance)
		assert.ErrorIs(t, adjustErr, domain.ErrInsufficientBalance)
	} else {
		assert.Equal(t, int64(200), view.Balance)
		assert.ErrorIs(t, approveErr, domain.ErrInsufficientBalance)
	}
}

func TestWithdrawalService_ListPendingWithdrawals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		w := env.fund(t, fmt.Sprintf("guide-%d", i), 1000)
		_, err := env.withdrawals.RequestWithdrawal(ctx, service.WithdrawalInput{
			WalletID: w.ID, Amount: 100, Destination: bankDestination(),
		})
		require.NoError(t, err)
	}

	pending, total, err := env.withdrawals.ListPendingWithdrawals(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, pending, 2)
	for _, p := range pending {
		assert.Equal(t, domain.TransactionStatusPending, p.Status)
	}
}
