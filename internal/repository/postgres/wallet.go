package postgres

import (
	"context"
	"time"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
)

const walletColumns = `id, owner_type, owner_id, balance, credit_limit, created_at, updated_at`

type walletRepository struct {
	db dbtx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(&w.ID, &w.OwnerType, &w.OwnerID, &w.Balance, &w.CreditLimit, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepository) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	w, err := scanWallet(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "wallet", id)
	}
	return w, nil
}

func (r *walletRepository) GetWalletForUpdate(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	w, err := scanWallet(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "wallet", id)
	}
	return w, nil
}

func (r *walletRepository) GetWalletByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_type = $1 AND owner_id = $2`
	w, err := scanWallet(r.db.QueryRowContext(ctx, query, ownerType, ownerID))
	if err != nil {
		return nil, notFound(err, "wallet", string(ownerType)+":"+ownerID)
	}
	return w, nil
}

// EnsureWallet inserts the wallet unless the owner already has one, then
// locks and returns the stored row. Concurrent first earnings for the same
// owner converge on a single wallet.
func (r *walletRepository) EnsureWallet(ctx context.Context, w *domain.Wallet) (*domain.Wallet, error) {
	insert := `INSERT INTO wallets (id, owner_type, owner_id, balance, credit_limit, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           ON CONFLICT (owner_type, owner_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, w.ID, w.OwnerType, w.OwnerID, w.Balance, w.CreditLimit, w.CreatedAt, w.UpdatedAt); err != nil {
		return nil, translateError(err, "create wallet", string(w.OwnerType)+":"+w.OwnerID)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_type = $1 AND owner_id = $2 FOR UPDATE`
	stored, err := scanWallet(r.db.QueryRowContext(ctx, query, w.OwnerType, w.OwnerID))
	if err != nil {
		return nil, notFound(err, "wallet", string(w.OwnerType)+":"+w.OwnerID)
	}
	return stored, nil
}

func (r *walletRepository) UpdateBalance(ctx context.Context, id string, balance int64, updatedAt time.Time) error {
	logger.DatabaseCall("UPDATE", "wallets", "walletID", id, "balance", balance)
	query := `UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, balance, updatedAt, id)
	if err != nil {
		return translateError(err, "update wallet balance", id)
	}
	return expectOneRow(res, "wallet", id)
}

func (r *walletRepository) UpdateCreditLimit(ctx context.Context, id string, creditLimit int64, updatedAt time.Time) error {
	query := `UPDATE wallets SET credit_limit = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, creditLimit, updatedAt, id)
	if err != nil {
		return translateError(err, "update wallet credit limit", id)
	}
	return expectOneRow(res, "wallet", id)
}

func (r *walletRepository) ListWallets(ctx context.Context, afterID string, limit int) ([]domain.Wallet, error) {
	var query string
	var args []any
	if afterID == "" {
		query = `SELECT ` + walletColumns + ` FROM wallets ORDER BY id LIMIT $1`
		args = []any{limit}
	} else {
		query = `SELECT ` + walletColumns + ` FROM wallets WHERE id > $1 ORDER BY id LIMIT $2`
		args = []any{afterID, limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "list wallets", afterID)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	return wallets, rows.Err()
}
