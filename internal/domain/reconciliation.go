package domain

import "time"

// ReconciliationResult compares a stored balance with the ledger fold.
type ReconciliationResult struct {
	WalletID         string    `json:"wallet_id"`
	Matches          bool      `json:"matches"`
	StoredBalance    int64     `json:"stored_balance"`
	ComputedBalance  int64     `json:"computed_balance"`
	Drift            int64     `json:"drift"`
	TransactionCount int       `json:"transaction_count"`
	CheckedAt        time.Time `json:"checked_at"`
}
