// Package memory is a single-writer Store used by tests and local runs. Every
// unit of work holds the store lock and operates on a private copy of the
// state that replaces the shared state only on success.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/repository"
)

type state struct {
	wallets      map[string]domain.Wallet
	transactions map[string]domain.Transaction
	order        []string // transaction ids in append order
	refunds      map[string]domain.RefundRequest
	actions      []domain.RefundActionLog
	policies     map[string]domain.CancellationPolicy
}

func newState() *state {
	return &state{
		wallets:      make(map[string]domain.Wallet),
		transactions: make(map[string]domain.Transaction),
		refunds:      make(map[string]domain.RefundRequest),
		policies:     make(map[string]domain.CancellationPolicy),
	}
}

func (s *state) clone() *state {
	c := &state{
		wallets:      make(map[string]domain.Wallet, len(s.wallets)),
		transactions: make(map[string]domain.Transaction, len(s.transactions)),
		order:        append([]string(nil), s.order...),
		refunds:      make(map[string]domain.RefundRequest, len(s.refunds)),
		actions:      append([]domain.RefundActionLog(nil), s.actions...),
		policies:     make(map[string]domain.CancellationPolicy, len(s.policies)),
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.refunds {
		c.refunds[k] = v
	}
	for k, v := range s.policies {
		c.policies[k] = v
	}
	return c
}

type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// Repos returns repositories where each call is its own unit of work.
func (s *Store) Repos() repository.Repositories {
	view := &view{
		get: func() *state { return s.state },
		lock: func() func() {
			s.mu.Lock()
			return s.mu.Unlock
		},
	}
	return view.repositories()
}

func (s *Store) RunInTx(ctx context.Context, fn repository.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	v := &view{
		get:  func() *state { return work },
		lock: func() func() { return func() {} },
	}
	if err := fn(ctx, v.repositories()); err != nil {
		return err
	}
	s.state = work
	return nil
}

// view binds repositories to either the shared state (locking per call) or a
// unit of work's private copy (already locked).
type view struct {
	get  func() *state
	lock func() func()
}

func (v *view) repositories() repository.Repositories {
	return repository.Repositories{
		Wallets:      &walletRepo{v},
		Transactions: &transactionRepo{v},
		Refunds:      &refundRepo{v},
		Policies:     &policyRepo{v},
	}
}

type walletRepo struct{ v *view }

func (r *walletRepo) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	defer r.v.lock()()
	w, ok := r.v.get().wallets[id]
	if !ok {
		return nil, domain.NewNotFoundError("wallet", id)
	}
	return &w, nil
}

func (r *walletRepo) GetWalletForUpdate(ctx context.Context, id string) (*domain.Wallet, error) {
	return r.GetWallet(ctx, id)
}

func (r *walletRepo) GetWalletByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID string) (*domain.Wallet, error) {
	defer r.v.lock()()
	for _, w := range r.v.get().wallets {
		if w.OwnerType == ownerType && w.OwnerID == ownerID {
			return &w, nil
		}
	}
	return nil, domain.NewNotFoundError("wallet", string(ownerType)+":"+ownerID)
}

func (r *walletRepo) EnsureWallet(ctx context.Context, w *domain.Wallet) (*domain.Wallet, error) {
	defer r.v.lock()()
	st := r.v.get()
	for _, existing := range st.wallets {
		if existing.OwnerType == w.OwnerType && existing.OwnerID == w.OwnerID {
			return &existing, nil
		}
	}
	st.wallets[w.ID] = *w
	stored := *w
	return &stored, nil
}

func (r *walletRepo) UpdateBalance(ctx context.Context, id string, balance int64, updatedAt time.Time) error {
	defer r.v.lock()()
	st := r.v.get()
	w, ok := st.wallets[id]
	if !ok {
		return domain.NewNotFoundError("wallet", id)
	}
	if balance+w.CreditLimit < 0 {
		return domain.ErrInsufficientBalance
	}
	w.Balance = balance
	w.UpdatedAt = updatedAt
	st.wallets[id] = w
	return nil
}

func (r *walletRepo) UpdateCreditLimit(ctx context.Context, id string, creditLimit int64, updatedAt time.Time) error {
	defer r.v.lock()()
	st := r.v.get()
	w, ok := st.wallets[id]
	if !ok {
		return domain.NewNotFoundError("wallet", id)
	}
	if creditLimit < 0 || w.Balance+creditLimit < 0 {
		return domain.ErrInsufficientBalance
	}
	w.CreditLimit = creditLimit
	w.UpdatedAt = updatedAt
	st.wallets[id] = w
	return nil
}

func (r *walletRepo) ListWallets(ctx context.Context, afterID string, limit int) ([]domain.Wallet, error) {
	defer r.v.lock()()
	ids := make([]string, 0, len(r.v.get().wallets))
	for id := range r.v.get().wallets {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]domain.Wallet, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.v.get().wallets[id])
	}
	return out, nil
}

type policyRepo struct{ v *view }

func (r *policyRepo) ListActivePolicies(ctx context.Context) ([]domain.CancellationPolicy, error) {
	defer r.v.lock()()
	var out []domain.CancellationPolicy
	for _, p := range r.v.get().policies {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *policyRepo) UpsertPolicy(ctx context.Context, p *domain.CancellationPolicy) error {
	defer r.v.lock()()
	r.v.get().policies[p.Name] = *p
	return nil
}
