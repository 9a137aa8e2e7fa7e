package domain

import "time"

type OwnerType string

const (
	OwnerTypeGuide   OwnerType = "guide"
	OwnerTypePartner OwnerType = "partner"
	OwnerTypeLoyalty OwnerType = "loyalty"
)

func (o OwnerType) Valid() bool {
	switch o {
	case OwnerTypeGuide, OwnerTypePartner, OwnerTypeLoyalty:
		return true
	}
	return false
}

// Wallet holds the mutable balance of one owner. Balance is in whole currency
// units (or points for loyalty wallets).
type Wallet struct {
	ID          string    `json:"id"`
	OwnerType   OwnerType `json:"owner_type"`
	OwnerID     string    `json:"owner_id"`
	Balance     int64     `json:"balance"`
	CreditLimit int64     `json:"credit_limit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Available is the amount that may still be debited: balance + creditLimit.
func (w *Wallet) Available() int64 {
	return w.Balance + w.CreditLimit
}

// CanApply reports whether adding delta keeps balance + creditLimit >= 0.
func (w *Wallet) CanApply(delta int64) bool {
	return w.Balance+delta >= -w.CreditLimit
}

// BalanceView is the read model returned by GetBalance.
type BalanceView struct {
	WalletID          string    `json:"wallet_id"`
	Balance           int64     `json:"balance"`
	CreditLimit       int64     `json:"credit_limit"`
	Available         int64     `json:"available"`
	PendingWithdrawal int64     `json:"pending_withdrawal"`
	UpdatedAt         time.Time `json:"updated_at"`
}
