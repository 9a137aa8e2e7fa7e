package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/repository"
)

const withdrawalReferenceType = "withdrawal"

type withdrawalService struct {
	core
}

func NewWithdrawalService(d Deps) WithdrawalService {
	return &withdrawalService{core: newCore(d)}
}

// RequestWithdrawal records a pending request. The balance is not touched
// until the request is approved.
func (s *withdrawalService) RequestWithdrawal(ctx context.Context, in WithdrawalInput) (*domain.Transaction, error) {
	logger.EnterMethod("withdrawalService.RequestWithdrawal", "wallet_id", in.WalletID, "amount", in.Amount)

	if err := validateWithdrawal(in); err != nil {
		logger.ExitMethodWithError("withdrawalService.RequestWithdrawal", err, true)
		return nil, err
	}

	var result *domain.Transaction
	var wallet *domain.Wallet
	err := s.runInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		// The wallet lock serialises concurrent requests for the same wallet.
		w, err := repos.Wallets.GetWalletForUpdate(ctx, in.WalletID)
		if err != nil {
			return err
		}
		existing, err := repos.Transactions.FindPendingWithdrawal(ctx, w.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.DuplicateRequestError{Key: "wallet " + w.ID, ExistingID: existing.ID}
		}
		if in.Amount > w.Available() {
			return &domain.InsufficientBalanceError{Requested: in.Amount, Available: w.Available()}
		}

		dest := in.Destination
		tx := &domain.Transaction{
			ID:            newID(),
			WalletID:      w.ID,
			Amount:        -in.Amount,
			Type:          domain.TransactionTypeWithdrawRequest,
			Status:        domain.TransactionStatusPending,
			ReferenceType: withdrawalReferenceType,
			ActorID:       in.ActorID,
			Description:   fmt.Sprintf("Withdrawal to %s %s", dest.Method, maskAccount(dest.AccountNumber)),
			Destination:   &dest,
			CreatedAt:     s.clock.Now(),
		}
		tx.ReferenceID = tx.ID
		if err := repos.Transactions.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		result, wallet = tx, w
		return nil
	})
	s.metrics.ObserveWithdrawal("request", err)
	if err != nil {
		logger.ExitMethodWithError("withdrawalService.RequestWithdrawal", err, isExpected(err))
		return nil, err
	}

	s.notify.Dispatch(ctx, financeRecipient, domain.Notification{
		Type:    domain.NotificationTypeWithdrawalRequested,
		Title:   "Withdrawal pending approval",
		Message: fmt.Sprintf("%s %s requested a withdrawal of %d", wallet.OwnerType, wallet.OwnerID, in.Amount),
		Attributes: map[string]string{
			"wallet_id":  wallet.ID,
			"request_id": result.ID,
			"amount":     strconv.FormatInt(in.Amount, 10),
		},
		CreatedAt: result.CreatedAt,
	})
	logger.ExitMethod("withdrawalService.RequestWithdrawal", "request_id", result.ID)
	return result, nil
}

// ResolveWithdrawal approves or rejects a pending request. Approval debits the
// wallet and flips the request in the same unit of work, re-checking funds
// against the balance at that moment.
func (s *withdrawalService) ResolveWithdrawal(ctx context.Context, in ResolveInput) (*domain.Transaction, error) {
	logger.EnterMethod("withdrawalService.ResolveWithdrawal", "request_id", in.RequestID, "decision", in.Decision)
	started := time.Now()
	defer s.metrics.ObserveLatency("resolve_withdrawal", started)

	target, err := decisionTarget(in.Decision)
	if err == nil {
		err = validateID("request_id", in.RequestID)
	}
	if err == nil && in.ApproverID == "" {
		err = domain.NewValidationError("approver_id", "is required")
	}
	if err != nil {
		logger.ExitMethodWithError("withdrawalService.ResolveWithdrawal", err, true)
		return nil, err
	}

	var result *domain.Transaction
	var wallet *domain.Wallet
	err = s.runInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		peek, err := repos.Transactions.GetTransaction(ctx, in.RequestID)
		if err != nil {
			return err
		}
		if !isWithdrawalRow(peek.Type) {
			return domain.NewNotFoundError("withdrawal request", in.RequestID)
		}

		// Lock order is wallet first, then the request row.
		w, err := repos.Wallets.GetWalletForUpdate(ctx, peek.WalletID)
		if err != nil {
			return err
		}
		req, err := repos.Transactions.GetTransactionForUpdate(ctx, in.RequestID)
		if err != nil {
			return err
		}
		if _, err := withdrawalMachine.Transition(req.Status, target); err != nil {
			return err
		}
		if req.ActorID != nil && *req.ActorID == in.ApproverID {
			return domain.NewValidationError("approver_id", "cannot resolve your own request")
		}

		now := s.clock.Now()
		approver := in.ApproverID
		req.ResolvedAt = &now
		req.ResolvedBy = &approver
		req.Status = target

		if target == domain.TransactionStatusApproved {
			req.Type = domain.TransactionTypeWithdrawApproved
			if err := applyDelta(ctx, repos, w, req, now); err != nil {
				return err
			}
		} else {
			req.Type = domain.TransactionTypeRejected
			if in.Reason != "" {
				req.Description = strings.TrimSpace(req.Description + ". Rejected: " + in.Reason)
			}
		}
		if err := repos.Transactions.ResolveTransaction(ctx, req); err != nil {
			return err
		}
		result, wallet = req, w
		return nil
	})
	s.metrics.ObserveWithdrawal(string(in.Decision), err)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			logger.WarnContext(ctx, "Withdrawal approval refused, funds no longer available", "request_id", in.RequestID, "error", err)
		}
		logger.ExitMethodWithError("withdrawalService.ResolveWithdrawal", err, isExpected(err))
		return nil, err
	}

	s.notify.Dispatch(ctx, ownerRecipient(wallet), resolutionNotification(result, in.Reason))
	logger.ExitMethod("withdrawalService.ResolveWithdrawal", "request_id", result.ID, "status", result.Status)
	return result, nil
}

func (s *withdrawalService) ListPendingWithdrawals(ctx context.Context, page, pageSize int32) ([]domain.Transaction, int64, error) {
	filter := domain.TransactionFilter{
		Types:    []domain.TransactionType{domain.TransactionTypeWithdrawRequest},
		Statuses: []domain.TransactionStatus{domain.TransactionStatusPending},
		Page:     page,
		PageSize: pageSize,
	}
	filter.Normalize()
	return s.store.Repos().Transactions.ListTransactions(ctx, filter)
}

func validateWithdrawal(in WithdrawalInput) error {
	if err := validateWalletID(in.WalletID); err != nil {
		return err
	}
	if in.Amount <= 0 {
		return domain.NewValidationError("amount", "must be positive")
	}
	d := in.Destination
	switch {
	case d.Method == "":
		return domain.NewValidationError("destination.method", "is required")
	case d.AccountName == "":
		return domain.NewValidationError("destination.account_name", "is required")
	case d.AccountNumber == "":
		return domain.NewValidationError("destination.account_number", "is required")
	case d.Method == "bank_transfer" && d.BankName == "":
		return domain.NewValidationError("destination.bank_name", "is required for bank transfers")
	}
	return nil
}

func decisionTarget(d Decision) (domain.TransactionStatus, error) {
	switch d {
	case DecisionApprove:
		return domain.TransactionStatusApproved, nil
	case DecisionReject:
		return domain.TransactionStatusRejected, nil
	}
	return "", domain.NewValidationError("decision", fmt.Sprintf("unknown decision %q", d))
}

func isWithdrawalRow(t domain.TransactionType) bool {
	return t == domain.TransactionTypeWithdrawRequest ||
		t == domain.TransactionTypeWithdrawApproved ||
		t == domain.TransactionTypeRejected
}

func maskAccount(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

func resolutionNotification(tx *domain.Transaction, reason string) domain.Notification {
	n := domain.Notification{
		Attributes: map[string]string{
			"wallet_id":  tx.WalletID,
			"request_id": tx.ID,
			"amount":     strconv.FormatInt(-tx.Amount, 10),
		},
		CreatedAt: *tx.ResolvedAt,
	}
	if tx.Status == domain.TransactionStatusApproved {
		n.Type = domain.NotificationTypeWithdrawalApproved
		n.Title = "Withdrawal approved"
		n.Message = fmt.Sprintf("Your withdrawal of %d was approved", -tx.Amount)
		n.Attributes["balance"] = strconv.FormatInt(*tx.BalanceAfter, 10)
		return n
	}
	n.Type = domain.NotificationTypeWithdrawalRejected
	n.Title = "Withdrawal rejected"
	n.Message = fmt.Sprintf("Your withdrawal of %d was rejected", -tx.Amount)
	if reason != "" {
		n.Message += ": " + reason
		n.Attributes["reason"] = reason
	}
	return n
}
