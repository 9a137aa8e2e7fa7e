package memory

import (
	"context"
	"sort"

	"tourledger-backend/internal/domain"
)

type refundRepo struct{ v *view }

func (r *refundRepo) CreateRefund(ctx context.Context, ref *domain.RefundRequest) error {
	defer r.v.lock()()
	st := r.v.get()
	for _, existing := range st.refunds {
		if existing.BookingID == ref.BookingID && existing.Status != domain.RefundStatusRejected {
			return &domain.DuplicateRequestError{Key: "booking " + ref.BookingID, ExistingID: existing.ID}
		}
	}
	st.refunds[ref.ID] = *ref
	return nil
}

func (r *refundRepo) GetRefund(ctx context.Context, id string) (*domain.RefundRequest, error) {
	defer r.v.lock()()
	ref, ok := r.v.get().refunds[id]
	if !ok {
		return nil, domain.NewNotFoundError("refund", id)
	}
	return &ref, nil
}

func (r *refundRepo) GetRefundForUpdate(ctx context.Context, id string) (*domain.RefundRequest, error) {
	return r.GetRefund(ctx, id)
}

func (r *refundRepo) UpdateRefundStatus(ctx context.Context, ref *domain.RefundRequest, from domain.RefundStatus) error {
	defer r.v.lock()()
	st := r.v.get()
	stored, ok := st.refunds[ref.ID]
	if !ok {
		return domain.NewNotFoundError("refund", ref.ID)
	}
	if stored.Status != from {
		return &domain.InvalidTransitionError{Current: string(stored.Status), Requested: string(ref.Status)}
	}
	st.refunds[ref.ID] = *ref
	return nil
}

func (r *refundRepo) FindActiveRefund(ctx context.Context, bookingID string) (*domain.RefundRequest, error) {
	defer r.v.lock()()
	for _, ref := range r.v.get().refunds {
		if ref.BookingID == bookingID && ref.Status != domain.RefundStatusRejected {
			return &ref, nil
		}
	}
	return nil, nil
}

func (r *refundRepo) AppendAction(ctx context.Context, a *domain.RefundActionLog) error {
	defer r.v.lock()()
	st := r.v.get()
	st.actions = append(st.actions, *a)
	return nil
}

func (r *refundRepo) ListActions(ctx context.Context, refundID string) ([]domain.RefundActionLog, error) {
	defer r.v.lock()()
	var out []domain.RefundActionLog
	for _, a := range r.v.get().actions {
		if a.RefundID == refundID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
