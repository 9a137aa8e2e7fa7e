package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tourledger-backend/internal/domain"
)

type sender interface {
	Send(ctx context.Context, recipient domain.Recipient, n domain.Notification) error
}

// DiscrepancyAlerter tells the finance team about a wallet whose stored
// balance disagrees with its ledger. It only reports.
type DiscrepancyAlerter struct {
	out sender
}

func NewDiscrepancyAlerter(out sender) *DiscrepancyAlerter {
	return &DiscrepancyAlerter{out: out}
}

func (a *DiscrepancyAlerter) ReportDiscrepancy(ctx context.Context, r domain.ReconciliationResult) error {
	return a.out.Send(ctx, domain.Recipient{Role: "finance"}, domain.Notification{
		Type:  domain.NotificationTypeReconcileMismatch,
		Title: "Wallet balance mismatch",
		Message: fmt.Sprintf("Wallet %s stores %d but its ledger sums to %d (drift %d)",
			r.WalletID, r.StoredBalance, r.ComputedBalance, r.Drift),
		Attributes: map[string]string{
			"wallet_id":         r.WalletID,
			"stored_balance":    strconv.FormatInt(r.StoredBalance, 10),
			"computed_balance":  strconv.FormatInt(r.ComputedBalance, 10),
			"drift":             strconv.FormatInt(r.Drift, 10),
			"transaction_count": strconv.Itoa(r.TransactionCount),
			"checked_at":        r.CheckedAt.Format(time.RFC3339),
		},
		CreatedAt: r.CheckedAt,
	})
}
