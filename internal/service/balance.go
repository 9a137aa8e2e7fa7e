package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/repository"
)

type balanceService struct {
	core
}

func NewBalanceService(d Deps) BalanceService {
	return &balanceService{core: newCore(d)}
}

func (s *balanceService) GetBalance(ctx context.Context, walletID string) (*domain.BalanceView, error) {
	if err := validateWalletID(walletID); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	w, err := repos.Wallets.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	view := &domain.BalanceView{
		WalletID:    w.ID,
		Balance:     w.Balance,
		CreditLimit: w.CreditLimit,
		Available:   w.Available(),
		UpdatedAt:   w.UpdatedAt,
	}
	pending, err := repos.Transactions.FindPendingWithdrawal(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		view.PendingWithdrawal = -pending.Amount
	}
	return view, nil
}

func (s *balanceService) GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	if err := validateWalletID(walletID); err != nil {
		return nil, err
	}
	return s.store.Repos().Wallets.GetWallet(ctx, walletID)
}

func (s *balanceService) GetWalletByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID string) (*domain.Wallet, error) {
	if !ownerType.Valid() {
		return nil, domain.NewValidationError("owner_type", fmt.Sprintf("unknown owner type %q", ownerType))
	}
	if ownerID == "" {
		return nil, domain.NewValidationError("owner_id", "is required")
	}
	return s.store.Repos().Wallets.GetWalletByOwner(ctx, ownerType, ownerID)
}

// ApplyDelta posts a committed row of any non-withdrawal type against an
// existing wallet.
func (s *balanceService) ApplyDelta(ctx context.Context, in DeltaInput) (*domain.Transaction, error) {
	started := time.Now()
	defer s.metrics.ObserveLatency("apply_delta", started)

	if err := validateWalletID(in.WalletID); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, domain.NewValidationError("type", fmt.Sprintf("unknown transaction type %q", in.Type))
	}
	switch in.Type {
	case domain.TransactionTypeWithdrawRequest, domain.TransactionTypeWithdrawApproved, domain.TransactionTypeRejected:
		return nil, domain.NewValidationError("type", "withdrawals go through the approval workflow")
	}
	if in.Amount == 0 {
		return nil, domain.NewValidationError("amount", "must not be zero")
	}

	var result *domain.Transaction
	var wallet *domain.Wallet
	err := s.runInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		w, err := repos.Wallets.GetWalletForUpdate(ctx, in.WalletID)
		if err != nil {
			return err
		}
		tx := s.newCommittedRow(w.ID, in)
		if err := applyDelta(ctx, repos, w, tx, tx.CreatedAt); err != nil {
			return err
		}
		if err := repos.Transactions.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		result, wallet = tx, w
		return nil
	})
	s.metrics.ObserveMutation(string(in.Type), err)
	if err != nil {
		if !isExpected(err) {
			logger.ErrorContext(ctx, "Failed to apply balance delta", "wallet_id", in.WalletID, "type", in.Type, "error", err)
		}
		return nil, err
	}

	logger.InfoContext(ctx, "Balance delta applied",
		"wallet_id", wallet.ID, "type", result.Type, "amount", result.Amount, "balance_after", *result.BalanceAfter)
	return result, nil
}

// RecordEarning credits the owner's wallet, creating it on first use. A replay
// with the same reference returns the row that was already recorded.
func (s *balanceService) RecordEarning(ctx context.Context, in EarningInput) (*domain.Transaction, error) {
	started := time.Now()
	defer s.metrics.ObserveLatency("record_earning", started)

	if !in.OwnerType.Valid() {
		return nil, domain.NewValidationError("owner_type", fmt.Sprintf("unknown owner type %q", in.OwnerType))
	}
	if in.OwnerID == "" {
		return nil, domain.NewValidationError("owner_id", "is required")
	}
	if in.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	if (in.Reference.Type == "") != (in.Reference.ID == "") {
		return nil, domain.NewValidationError("reference", "type and id must be given together")
	}

	var result *domain.Transaction
	var wallet *domain.Wallet
	replayed := false
	err := s.runInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		replayed = false
		now := s.clock.Now()
		w, err := repos.Wallets.EnsureWallet(ctx, &domain.Wallet{
			ID:        newID(),
			OwnerType: in.OwnerType,
			OwnerID:   in.OwnerID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		if in.Reference.ID != "" {
			existing, err := repos.Transactions.FindByReference(ctx, w.ID, domain.TransactionTypeEarning, in.Reference)
			if err != nil {
				return err
			}
			if existing != nil {
				result, wallet, replayed = existing, w, true
				return nil
			}
		}
		tx := s.newCommittedRow(w.ID, DeltaInput{
			Amount:      in.Amount,
			Type:        domain.TransactionTypeEarning,
			Reference:   in.Reference,
			ActorID:     in.ActorID,
			Description: in.Description,
		})
		if err := applyDelta(ctx, repos, w, tx, tx.CreatedAt); err != nil {
			return err
		}
		if err := repos.Transactions.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		result, wallet = tx, w
		return nil
	})
	s.metrics.ObserveMutation(string(domain.TransactionTypeEarning), err)
	if err != nil {
		if !isExpected(err) {
			logger.ErrorContext(ctx, "Failed to record earning", "owner_type", in.OwnerType, "owner_id", in.OwnerID, "error", err)
		}
		return nil, err
	}
	if replayed {
		logger.InfoContext(ctx, "Earning already recorded", "wallet_id", wallet.ID, "reference_id", in.Reference.ID, "transaction_id", result.ID)
		return result, nil
	}

	s.notify.Dispatch(ctx, ownerRecipient(wallet), domain.Notification{
		Type:    domain.NotificationTypeEarningRecorded,
		Title:   "Earning recorded",
		Message: fmt.Sprintf("%d was credited to your wallet", result.Amount),
		Attributes: map[string]string{
			"wallet_id":      wallet.ID,
			"transaction_id": result.ID,
			"amount":         strconv.FormatInt(result.Amount, 10),
			"balance":        strconv.FormatInt(*result.BalanceAfter, 10),
		},
		CreatedAt: result.CreatedAt,
	})
	return result, nil
}

// ApplyAdjustment posts a manual adjustment, correction or expiry.
func (s *balanceService) ApplyAdjustment(ctx context.Context, in AdjustmentInput) (*domain.Transaction, error) {
	if !in.Type.IsManual() {
		return nil, domain.NewValidationError("type", "must be adjustment, correction or expiry")
	}
	if in.Reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}
	if in.Type == domain.TransactionTypeExpiry && in.Amount >= 0 {
		return nil, domain.NewValidationError("amount", "expiry must be negative")
	}

	tx, err := s.ApplyDelta(ctx, DeltaInput{
		WalletID:    in.WalletID,
		Amount:      in.Amount,
		Type:        in.Type,
		Reference:   in.Reference,
		ActorID:     in.ActorID,
		Description: in.Reason,
	})
	if err != nil {
		return nil, err
	}

	w, err := s.GetWallet(ctx, tx.WalletID)
	if err != nil {
		logger.WarnContext(ctx, "Adjustment applied but owner notification skipped",
			"wallet_id", tx.WalletID, "transaction_id", tx.ID, "error", err)
		return tx, nil
	}
	s.notify.Dispatch(ctx, ownerRecipient(w), domain.Notification{
		Type:    domain.NotificationTypeBalanceAdjusted,
		Title:   "Balance adjusted",
		Message: fmt.Sprintf("Your balance changed by %d: %s", tx.Amount, in.Reason),
		Attributes: map[string]string{
			"wallet_id":      tx.WalletID,
			"transaction_id": tx.ID,
			"type":           string(tx.Type),
			"amount":         strconv.FormatInt(tx.Amount, 10),
		},
		CreatedAt: tx.CreatedAt,
	})
	return tx, nil
}

func (s *balanceService) SetCreditLimit(ctx context.Context, walletID string, creditLimit int64, actorID *string) (*domain.Wallet, error) {
	if err := validateWalletID(walletID); err != nil {
		return nil, err
	}
	if creditLimit < 0 {
		return nil, domain.NewValidationError("credit_limit", "must not be negative")
	}

	var wallet *domain.Wallet
	err := s.runInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		w, err := repos.Wallets.GetWalletForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		if w.Balance+creditLimit < 0 {
			return domain.NewValidationError("credit_limit",
				fmt.Sprintf("balance %d would fall below the floor with limit %d", w.Balance, creditLimit))
		}
		now := s.clock.Now()
		if err := repos.Wallets.UpdateCreditLimit(ctx, w.ID, creditLimit, now); err != nil {
			return err
		}
		w.CreditLimit = creditLimit
		w.UpdatedAt = now
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	actor := "system"
	if actorID != nil {
		actor = *actorID
	}
	logger.InfoContext(ctx, "Credit limit updated", "wallet_id", walletID, "credit_limit", creditLimit, "actor_id", actor)
	return wallet, nil
}

func (s *balanceService) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	if err := validateWalletID(filter.WalletID); err != nil {
		return nil, 0, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, domain.NewValidationError("to", "must not be before from")
	}
	for _, t := range filter.Types {
		if !t.Valid() {
			return nil, 0, domain.NewValidationError("type", fmt.Sprintf("unknown transaction type %q", t))
		}
	}
	filter.Normalize()
	if _, err := s.store.Repos().Wallets.GetWallet(ctx, filter.WalletID); err != nil {
		return nil, 0, err
	}
	return s.store.Repos().Transactions.ListTransactions(ctx, filter)
}

func (s *balanceService) newCommittedRow(walletID string, in DeltaInput) *domain.Transaction {
	return &domain.Transaction{
		ID:            newID(),
		WalletID:      walletID,
		Amount:        in.Amount,
		Type:          in.Type,
		Status:        committedStatus(in.Type),
		ReferenceType: in.Reference.Type,
		ReferenceID:   in.Reference.ID,
		ActorID:       in.ActorID,
		Description:   in.Description,
		CreatedAt:     s.clock.Now(),
	}
}

// committedStatus is completed for system credits and approved for rows a
// person signed off on.
func committedStatus(t domain.TransactionType) domain.TransactionStatus {
	if t == domain.TransactionTypeEarning {
		return domain.TransactionStatusCompleted
	}
	return domain.TransactionStatusApproved
}
