package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/repository"

	_ "github.com/lib/pq"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RetryPolicy bounds the retries of a unit of work that hit a serialization
// failure or deadlock.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Backoff: 20 * time.Millisecond}

type Store struct {
	db    *sql.DB
	retry RetryPolicy
	repository.WalletRepository
	repository.TransactionRepository
	repository.RefundRepository
	repository.PolicyRepository
}

func NewStore(db *sql.DB, retry RetryPolicy) *Store {
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	if retry.Backoff <= 0 {
		retry.Backoff = DefaultRetryPolicy.Backoff
	}
	repos := newRepositories(db)
	return &Store{
		db:                    db,
		retry:                 retry,
		WalletRepository:      repos.Wallets,
		TransactionRepository: repos.Transactions,
		RefundRepository:      repos.Refunds,
		PolicyRepository:      repos.Policies,
	}
}

func newRepositories(q dbtx) repository.Repositories {
	return repository.Repositories{
		Wallets:      &walletRepository{db: q},
		Transactions: &transactionRepository{db: q},
		Refunds:      &refundRepository{db: q},
		Policies:     &policyRepository{db: q},
	}
}

// Repos returns repositories that run each call in its own implicit transaction.
func (s *Store) Repos() repository.Repositories {
	return repository.Repositories{
		Wallets:      s.WalletRepository,
		Transactions: s.TransactionRepository,
		Refunds:      s.RefundRepository,
		Policies:     s.PolicyRepository,
	}
}

// RunInTx runs fn in a READ COMMITTED transaction. Row locks taken through the
// *ForUpdate lookups serialize writers per wallet. Serialization failures and
// deadlocks are retried with exponential backoff before surfacing as
// ErrConcurrencyConflict.
func (s *Store) RunInTx(ctx context.Context, fn repository.TxFunc) error {
	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := s.retry.Backoff << (attempt - 1)
			logger.WarnContext(ctx, "Retrying ledger transaction", "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: gave up after %d attempts: %v", domain.ErrConcurrencyConflict, s.retry.MaxRetries+1, lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn repository.TxFunc) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks connectivity for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
