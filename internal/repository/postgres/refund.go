package postgres

import (
	"context"
	"database/sql"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
)

const refundColumns = `id, booking_id, booking_amount, refund_amount, deduction_amount, refund_percentage, days_before_trip,
	applied_policy, status, reason, notes, gateway_reference, requested_by, processed_by, trip_date, cancelled_at,
	created_at, updated_at, completed_at`

type refundRepository struct {
	db dbtx
}

func scanRefund(row rowScanner) (*domain.RefundRequest, error) {
	var r domain.RefundRequest
	var requestedBy, processedBy sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&r.ID, &r.BookingID, &r.BookingAmount, &r.RefundAmount, &r.DeductionAmount, &r.RefundPercentage,
		&r.DaysBeforeTrip, &r.AppliedPolicy, &r.Status, &r.Reason, &r.Notes, &r.GatewayReference,
		&requestedBy, &processedBy, &r.TripDate, &r.CancelledAt, &r.CreatedAt, &r.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	r.RequestedBy = stringPtr(requestedBy)
	r.ProcessedBy = stringPtr(processedBy)
	r.CompletedAt = timePtr(completedAt)
	return &r, nil
}

func (r *refundRepository) CreateRefund(ctx context.Context, ref *domain.RefundRequest) error {
	query := `INSERT INTO refund_requests (id, booking_id, booking_amount, refund_amount, deduction_amount, refund_percentage,
	              days_before_trip, applied_policy, status, reason, notes, gateway_reference, requested_by, processed_by,
	              trip_date, cancelled_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.db.ExecContext(ctx, query,
		ref.ID, ref.BookingID, ref.BookingAmount, ref.RefundAmount, ref.DeductionAmount, ref.RefundPercentage,
		ref.DaysBeforeTrip, ref.AppliedPolicy, ref.Status, ref.Reason, ref.Notes, ref.GatewayReference,
		nullString(ref.RequestedBy), nullString(ref.ProcessedBy), ref.TripDate, ref.CancelledAt, ref.CreatedAt, ref.UpdatedAt)
	return translateError(err, "create refund", "booking "+ref.BookingID)
}

func (r *refundRepository) GetRefund(ctx context.Context, id string) (*domain.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE id = $1`
	ref, err := scanRefund(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "refund", id)
	}
	return ref, nil
}

func (r *refundRepository) GetRefundForUpdate(ctx context.Context, id string) (*domain.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE id = $1 FOR UPDATE`
	ref, err := scanRefund(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "refund", id)
	}
	return ref, nil
}

func (r *refundRepository) UpdateRefundStatus(ctx context.Context, ref *domain.RefundRequest, from domain.RefundStatus) error {
	logger.DatabaseCall("UPDATE", "refund_requests", "refundID", ref.ID, "from", from, "to", ref.Status)
	query := `UPDATE refund_requests
	          SET status = $1, notes = $2, gateway_reference = $3, processed_by = $4, updated_at = $5, completed_at = $6
	          WHERE id = $7 AND status = $8`
	var completedAt sql.NullTime
	if ref.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *ref.CompletedAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, query, ref.Status, ref.Notes, ref.GatewayReference, nullString(ref.ProcessedBy),
		ref.UpdatedAt, completedAt, ref.ID, from)
	if err != nil {
		return translateError(err, "update refund", "booking "+ref.BookingID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.InvalidTransitionError{Current: string(from), Requested: string(ref.Status)}
	}
	return nil
}

func (r *refundRepository) FindActiveRefund(ctx context.Context, bookingID string) (*domain.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE booking_id = $1 AND status <> 'rejected'`
	ref, err := scanRefund(r.db.QueryRowContext(ctx, query, bookingID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err, "find active refund", bookingID)
	}
	return ref, nil
}

func (r *refundRepository) AppendAction(ctx context.Context, a *domain.RefundActionLog) error {
	query := `INSERT INTO refund_actions (id, refund_id, action, from_status, to_status, actor_id, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.RefundID, a.Action, a.FromStatus, a.ToStatus,
		nullString(a.ActorID), a.Notes, a.CreatedAt)
	return translateError(err, "append refund action", a.RefundID)
}

func (r *refundRepository) ListActions(ctx context.Context, refundID string) ([]domain.RefundActionLog, error) {
	query := `SELECT id, refund_id, action, from_status, to_status, actor_id, notes, created_at
	          FROM refund_actions WHERE refund_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, refundID)
	if err != nil {
		return nil, translateError(err, "list refund actions", refundID)
	}
	defer rows.Close()

	var actions []domain.RefundActionLog
	for rows.Next() {
		var a domain.RefundActionLog
		var actorID sql.NullString
		if err := rows.Scan(&a.ID, &a.RefundID, &a.Action, &a.FromStatus, &a.ToStatus, &actorID, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ActorID = stringPtr(actorID)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
