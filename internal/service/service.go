package service

import (
	"context"
	"time"

	"tourledger-backend/internal/domain"
)

type BalanceService interface {
	GetBalance(ctx context.Context, walletID string) (*domain.BalanceView, error)
	GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID string) (*domain.Wallet, error)
	ApplyDelta(ctx context.Context, in DeltaInput) (*domain.Transaction, error)
	RecordEarning(ctx context.Context, in EarningInput) (*domain.Transaction, error)
	ApplyAdjustment(ctx context.Context, in AdjustmentInput) (*domain.Transaction, error)
	SetCreditLimit(ctx context.Context, walletID string, creditLimit int64, actorID *string) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error)
}

type WithdrawalService interface {
	RequestWithdrawal(ctx context.Context, in WithdrawalInput) (*domain.Transaction, error)
	ResolveWithdrawal(ctx context.Context, in ResolveInput) (*domain.Transaction, error)
	ListPendingWithdrawals(ctx context.Context, page, pageSize int32) ([]domain.Transaction, int64, error)
}

type RefundService interface {
	CalculateRefund(ctx context.Context, bookingAmount int64, tripDate time.Time, cancellationDate *time.Time) (*domain.RefundCalculation, error)
	CreateRefund(ctx context.Context, in RefundInput) (*domain.RefundRequest, error)
	ProcessRefund(ctx context.Context, in ProcessRefundInput) (*domain.RefundRequest, error)
	GetRefund(ctx context.Context, refundID string) (*domain.RefundRequest, []domain.RefundActionLog, error)
}

type ReconciliationService interface {
	ReconcileWallet(ctx context.Context, walletID string) (*domain.ReconciliationResult, error)
	ReconcileAll(ctx context.Context) (*ReconcileSummary, error)
}

// Notifier is the post-commit delivery boundary.
type Notifier interface {
	Send(ctx context.Context, recipient domain.Recipient, n domain.Notification) error
}

// Alerter receives reconciliation discrepancies. It must not correct anything.
type Alerter interface {
	ReportDiscrepancy(ctx context.Context, result domain.ReconciliationResult) error
}

type DeltaInput struct {
	WalletID    string
	Amount      int64
	Type        domain.TransactionType
	Reference   domain.Reference
	ActorID     *string
	Description string
}

type EarningInput struct {
	OwnerType   domain.OwnerType
	OwnerID     string
	Amount      int64
	Reference   domain.Reference
	ActorID     *string
	Description string
}

type AdjustmentInput struct {
	WalletID  string
	Amount    int64
	Type      domain.TransactionType // adjustment, correction or expiry
	Reason    string
	Reference domain.Reference
	ActorID   *string
}

type WithdrawalInput struct {
	WalletID    string
	Amount      int64
	Destination domain.PayoutDestination
	ActorID     *string
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type ResolveInput struct {
	RequestID  string
	Decision   Decision
	ApproverID string
	Reason     string
}

type RefundInput struct {
	BookingID        string
	BookingAmount    int64
	TripDate         time.Time
	CancellationDate *time.Time // nil means now
	Reason           string
	RequestedBy      *string
}

type ProcessRefundInput struct {
	RefundID         string
	Action           domain.RefundAction
	Notes            string
	GatewayReference string
	ActorID          *string // nil for gateway callbacks
}

type ReconcileSummary struct {
	Checked    int                           `json:"checked"`
	Mismatched int                           `json:"mismatched"`
	Failed     int                           `json:"failed"`
	Mismatches []domain.ReconciliationResult `json:"mismatches,omitempty"`
	StartedAt  time.Time                     `json:"started_at"`
	FinishedAt time.Time                     `json:"finished_at"`
}
