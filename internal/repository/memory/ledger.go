package memory

import (
	"context"
	"sort"

	"tourledger-backend/internal/domain"
)

type transactionRepo struct{ v *view }

func copyTransaction(tx domain.Transaction) domain.Transaction {
	if tx.BalanceBefore != nil {
		v := *tx.BalanceBefore
		tx.BalanceBefore = &v
	}
	if tx.BalanceAfter != nil {
		v := *tx.BalanceAfter
		tx.BalanceAfter = &v
	}
	if tx.ActorID != nil {
		v := *tx.ActorID
		tx.ActorID = &v
	}
	if tx.ResolvedBy != nil {
		v := *tx.ResolvedBy
		tx.ResolvedBy = &v
	}
	if tx.ResolvedAt != nil {
		v := *tx.ResolvedAt
		tx.ResolvedAt = &v
	}
	if tx.Destination != nil {
		v := *tx.Destination
		tx.Destination = &v
	}
	return tx
}

func (r *transactionRepo) AppendTransaction(ctx context.Context, tx *domain.Transaction) error {
	defer r.v.lock()()
	st := r.v.get()
	if _, exists := st.transactions[tx.ID]; exists {
		return &domain.DuplicateRequestError{Key: "transaction " + tx.ID}
	}
	for _, id := range st.order {
		existing := st.transactions[id]
		if existing.WalletID != tx.WalletID {
			continue
		}
		if tx.Type == domain.TransactionTypeWithdrawRequest && tx.Status == domain.TransactionStatusPending &&
			existing.Type == domain.TransactionTypeWithdrawRequest && existing.Status == domain.TransactionStatusPending {
			return &domain.DuplicateRequestError{Key: "wallet " + tx.WalletID, ExistingID: existing.ID}
		}
		if tx.Type == domain.TransactionTypeEarning && tx.ReferenceID != "" && existing.Type == domain.TransactionTypeEarning &&
			existing.ReferenceType == tx.ReferenceType && existing.ReferenceID == tx.ReferenceID {
			return &domain.DuplicateRequestError{Key: "earning " + tx.ReferenceType + ":" + tx.ReferenceID, ExistingID: existing.ID}
		}
	}
	st.transactions[tx.ID] = copyTransaction(*tx)
	st.order = append(st.order, tx.ID)
	return nil
}

func (r *transactionRepo) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	defer r.v.lock()()
	tx, ok := r.v.get().transactions[id]
	if !ok {
		return nil, domain.NewNotFoundError("transaction", id)
	}
	out := copyTransaction(tx)
	return &out, nil
}

func (r *transactionRepo) GetTransactionForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.GetTransaction(ctx, id)
}

func (r *transactionRepo) ResolveTransaction(ctx context.Context, tx *domain.Transaction) error {
	defer r.v.lock()()
	st := r.v.get()
	stored, ok := st.transactions[tx.ID]
	if !ok {
		return domain.NewNotFoundError("transaction", tx.ID)
	}
	if stored.Status != domain.TransactionStatusPending {
		return &domain.InvalidTransitionError{Current: string(stored.Status), Requested: string(tx.Status)}
	}
	stored.Type = tx.Type
	stored.Status = tx.Status
	stored.BalanceBefore = tx.BalanceBefore
	stored.BalanceAfter = tx.BalanceAfter
	stored.ResolvedAt = tx.ResolvedAt
	stored.ResolvedBy = tx.ResolvedBy
	stored.Description = tx.Description
	st.transactions[tx.ID] = copyTransaction(stored)
	return nil
}

func (r *transactionRepo) FindPendingWithdrawal(ctx context.Context, walletID string) (*domain.Transaction, error) {
	defer r.v.lock()()
	st := r.v.get()
	for _, id := range st.order {
		tx := st.transactions[id]
		if tx.WalletID == walletID && tx.Type == domain.TransactionTypeWithdrawRequest && tx.Status == domain.TransactionStatusPending {
			out := copyTransaction(tx)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *transactionRepo) FindByReference(ctx context.Context, walletID string, txType domain.TransactionType, ref domain.Reference) (*domain.Transaction, error) {
	defer r.v.lock()()
	st := r.v.get()
	for _, id := range st.order {
		tx := st.transactions[id]
		if tx.WalletID == walletID && tx.Type == txType && tx.ReferenceType == ref.Type && tx.ReferenceID == ref.ID {
			out := copyTransaction(tx)
			return &out, nil
		}
	}
	return nil, nil
}

func matches(tx domain.Transaction, f domain.TransactionFilter) bool {
	if f.WalletID != "" && tx.WalletID != f.WalletID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if tx.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if tx.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && tx.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !tx.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (r *transactionRepo) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	defer r.v.lock()()
	filter.Normalize()
	st := r.v.get()

	var all []domain.Transaction
	for i := len(st.order) - 1; i >= 0; i-- {
		tx := st.transactions[st.order[i]]
		if matches(tx, filter) {
			all = append(all, copyTransaction(tx))
		}
	}
	// Newest first; append order breaks ties between equal timestamps.
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	offset := filter.Offset()
	if offset >= total {
		return nil, total, nil
	}
	start := int(offset)
	end := start + int(filter.PageSize)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *transactionRepo) SumCommitted(ctx context.Context, walletID string) (int64, int, error) {
	defer r.v.lock()()
	st := r.v.get()
	var sum int64
	var count int
	for _, id := range st.order {
		tx := st.transactions[id]
		if tx.WalletID == walletID && tx.Status.Committed() {
			sum += tx.Amount
			count++
		}
	}
	return sum, count, nil
}
