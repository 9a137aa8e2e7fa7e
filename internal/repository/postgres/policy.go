package postgres

import (
	"context"

	"tourledger-backend/internal/domain"
)

type policyRepository struct {
	db dbtx
}

func (r *policyRepository) ListActivePolicies(ctx context.Context) ([]domain.CancellationPolicy, error) {
	query := `SELECT id, name, days_before_trip, refund_percentage, priority, active
	          FROM cancellation_policies WHERE active ORDER BY days_before_trip DESC, priority DESC, name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translateError(err, "list cancellation policies", "")
	}
	defer rows.Close()

	var policies []domain.CancellationPolicy
	for rows.Next() {
		var p domain.CancellationPolicy
		if err := rows.Scan(&p.ID, &p.Name, &p.DaysBeforeTrip, &p.RefundPercentage, &p.Priority, &p.Active); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (r *policyRepository) UpsertPolicy(ctx context.Context, p *domain.CancellationPolicy) error {
	query := `INSERT INTO cancellation_policies (id, name, days_before_trip, refund_percentage, priority, active)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (name) DO UPDATE SET days_before_trip = EXCLUDED.days_before_trip,
	              refund_percentage = EXCLUDED.refund_percentage, priority = EXCLUDED.priority, active = EXCLUDED.active`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.DaysBeforeTrip, p.RefundPercentage, p.Priority, p.Active)
	return translateError(err, "upsert cancellation policy", p.Name)
}
