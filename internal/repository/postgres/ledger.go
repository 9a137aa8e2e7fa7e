package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
)

const transactionColumns = `id, wallet_id, amount, type, status, balance_before, balance_after, reference_type, reference_id,
	actor_id, description, payout_method, payout_account_name, payout_account_number, payout_bank_name,
	created_at, resolved_at, resolved_by`

type transactionRepository struct {
	db dbtx
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var before, after sql.NullInt64
	var actorID, resolvedBy sql.NullString
	var method, accountName, accountNumber, bankName sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&tx.ID, &tx.WalletID, &tx.Amount, &tx.Type, &tx.Status, &before, &after,
		&tx.ReferenceType, &tx.ReferenceID, &actorID, &tx.Description,
		&method, &accountName, &accountNumber, &bankName,
		&tx.CreatedAt, &resolvedAt, &resolvedBy)
	if err != nil {
		return nil, err
	}
	tx.BalanceBefore = int64Ptr(before)
	tx.BalanceAfter = int64Ptr(after)
	tx.ActorID = stringPtr(actorID)
	tx.ResolvedBy = stringPtr(resolvedBy)
	tx.ResolvedAt = timePtr(resolvedAt)
	if method.Valid {
		tx.Destination = &domain.PayoutDestination{
			Method:        method.String,
			AccountName:   accountName.String,
			AccountNumber: accountNumber.String,
			BankName:      bankName.String,
		}
	}
	return &tx, nil
}

func (r *transactionRepository) AppendTransaction(ctx context.Context, tx *domain.Transaction) error {
	logger.DatabaseCall("INSERT", "wallet_transactions", "walletID", tx.WalletID, "type", tx.Type)
	query := `INSERT INTO wallet_transactions (id, wallet_id, amount, type, status, balance_before, balance_after,
	              reference_type, reference_id, actor_id, description,
	              payout_method, payout_account_name, payout_account_number, payout_bank_name, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	var method, accountName, accountNumber, bankName sql.NullString
	if d := tx.Destination; d != nil {
		method = sql.NullString{String: d.Method, Valid: true}
		accountName = sql.NullString{String: d.AccountName, Valid: true}
		accountNumber = sql.NullString{String: d.AccountNumber, Valid: true}
		bankName = sql.NullString{String: d.BankName, Valid: d.BankName != ""}
	}

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.WalletID, tx.Amount, tx.Type, tx.Status,
		nullInt64(tx.BalanceBefore), nullInt64(tx.BalanceAfter),
		tx.ReferenceType, tx.ReferenceID, nullString(tx.ActorID), tx.Description,
		method, accountName, accountNumber, bankName, tx.CreatedAt)
	return translateError(err, "append transaction", "wallet "+tx.WalletID)
}

func (r *transactionRepository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return tx, nil
}

func (r *transactionRepository) GetTransactionForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1 FOR UPDATE`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return tx, nil
}

// ResolveTransaction only touches rows that are still pending, so a terminal
// row can never be rewritten.
func (r *transactionRepository) ResolveTransaction(ctx context.Context, tx *domain.Transaction) error {
	logger.DatabaseCall("UPDATE", "wallet_transactions", "transactionID", tx.ID, "status", tx.Status)
	query := `UPDATE wallet_transactions
	          SET type = $1, status = $2, balance_before = $3, balance_after = $4, resolved_at = $5, resolved_by = $6,
	              description = $7
	          WHERE id = $8 AND status = 'pending'`
	var resolvedAt sql.NullTime
	if tx.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *tx.ResolvedAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, query, tx.Type, tx.Status,
		nullInt64(tx.BalanceBefore), nullInt64(tx.BalanceAfter), resolvedAt, nullString(tx.ResolvedBy),
		tx.Description, tx.ID)
	if err != nil {
		return translateError(err, "resolve transaction", tx.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.InvalidTransitionError{Current: "resolved", Requested: string(tx.Status)}
	}
	return nil
}

func (r *transactionRepository) FindPendingWithdrawal(ctx context.Context, walletID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions
	          WHERE wallet_id = $1 AND type = 'withdraw_request' AND status = 'pending'`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, walletID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err, "find pending withdrawal", walletID)
	}
	return tx, nil
}

func (r *transactionRepository) FindByReference(ctx context.Context, walletID string, txType domain.TransactionType, ref domain.Reference) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions
	          WHERE wallet_id = $1 AND type = $2 AND reference_type = $3 AND reference_id = $4
	          ORDER BY created_at LIMIT 1`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, walletID, txType, ref.Type, ref.ID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err, "find transaction by reference", ref.Type+":"+ref.ID)
	}
	return tx, nil
}

func (r *transactionRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	filter.Normalize()
	where, args := buildTransactionWhere(filter)

	var count int64
	countQuery := `SELECT count(*) FROM wallet_transactions WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, translateError(err, "count transactions", filter.WalletID)
	}

	query := fmt.Sprintf(`SELECT %s FROM wallet_transactions WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.PageSize, filter.Offset())...)
	if err != nil {
		return nil, 0, translateError(err, "list transactions", filter.WalletID)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		txs = append(txs, *tx)
	}
	return txs, count, rows.Err()
}

func buildTransactionWhere(f domain.TransactionFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.WalletID != "" {
		add("wallet_id = $%d", f.WalletID)
	}
	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, "type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			args = append(args, s)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

func (r *transactionRepository) SumCommitted(ctx context.Context, walletID string) (int64, int, error) {
	query := `SELECT COALESCE(SUM(amount), 0), count(*) FROM wallet_transactions
	          WHERE wallet_id = $1 AND status IN ('approved', 'completed')`
	var sum int64
	var count int
	if err := r.db.QueryRowContext(ctx, query, walletID).Scan(&sum, &count); err != nil {
		return 0, 0, translateError(err, "sum committed transactions", walletID)
	}
	return sum, count, nil
}
