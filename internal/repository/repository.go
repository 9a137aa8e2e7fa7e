package repository

import (
	"context"
	"time"

	"tourledger-backend/internal/domain"
)

// Lookups that find nothing return (nil, nil) when documented as optional and
// a *domain.NotFoundError otherwise.

type WalletRepository interface {
	GetWallet(ctx context.Context, id string) (*domain.Wallet, error)
	// GetWalletForUpdate row-locks the wallet until the surrounding unit of work ends.
	GetWalletForUpdate(ctx context.Context, id string) (*domain.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID string) (*domain.Wallet, error)
	// EnsureWallet creates the owner's wallet if missing and returns it locked.
	EnsureWallet(ctx context.Context, w *domain.Wallet) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, id string, balance int64, updatedAt time.Time) error
	UpdateCreditLimit(ctx context.Context, id string, creditLimit int64, updatedAt time.Time) error
	// ListWallets pages by ascending id, starting after afterID.
	ListWallets(ctx context.Context, afterID string, limit int) ([]domain.Wallet, error)
}

type TransactionRepository interface {
	AppendTransaction(ctx context.Context, tx *domain.Transaction) error
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, id string) (*domain.Transaction, error)
	// ResolveTransaction moves a pending row to its terminal type/status and
	// snapshots. A row that is no longer pending yields ErrInvalidTransition.
	ResolveTransaction(ctx context.Context, tx *domain.Transaction) error
	// FindPendingWithdrawal is optional: (nil, nil) when the wallet has none.
	FindPendingWithdrawal(ctx context.Context, walletID string) (*domain.Transaction, error)
	// FindByReference is optional: (nil, nil) when no row matches.
	FindByReference(ctx context.Context, walletID string, txType domain.TransactionType, ref domain.Reference) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error)
	// SumCommitted folds approved and completed amounts for the wallet.
	SumCommitted(ctx context.Context, walletID string) (int64, int, error)
}

type RefundRepository interface {
	CreateRefund(ctx context.Context, r *domain.RefundRequest) error
	GetRefund(ctx context.Context, id string) (*domain.RefundRequest, error)
	GetRefundForUpdate(ctx context.Context, id string) (*domain.RefundRequest, error)
	// UpdateRefundStatus persists r if its stored status is still from.
	UpdateRefundStatus(ctx context.Context, r *domain.RefundRequest, from domain.RefundStatus) error
	// FindActiveRefund is optional: (nil, nil) when the booking has no refund
	// other than rejected ones.
	FindActiveRefund(ctx context.Context, bookingID string) (*domain.RefundRequest, error)
	AppendAction(ctx context.Context, a *domain.RefundActionLog) error
	ListActions(ctx context.Context, refundID string) ([]domain.RefundActionLog, error)
}

type PolicyRepository interface {
	ListActivePolicies(ctx context.Context) ([]domain.CancellationPolicy, error)
	UpsertPolicy(ctx context.Context, p *domain.CancellationPolicy) error
}

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Wallets      WalletRepository
	Transactions TransactionRepository
	Refunds      RefundRepository
	Policies     PolicyRepository
}

// TxFunc runs inside a unit of work. Returning an error rolls everything back.
type TxFunc func(ctx context.Context, repos Repositories) error

// Store is the persistent backing store. RunInTx must give atomic
// read-modify-write per wallet row; implementations may retry fn on
// serialization failures, so fn must not have side effects outside repos.
type Store interface {
	Repos() Repositories
	RunInTx(ctx context.Context, fn TxFunc) error
}
