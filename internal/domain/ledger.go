package domain

import "time"

type TransactionType string

const (
	TransactionTypeEarning          TransactionType = "earning"
	TransactionTypeWithdrawRequest  TransactionType = "withdraw_request"
	TransactionTypeWithdrawApproved TransactionType = "withdraw_approved"
	TransactionTypeRejected         TransactionType = "rejected"
	TransactionTypeAdjustment       TransactionType = "adjustment"
	TransactionTypeCorrection       TransactionType = "correction"
	TransactionTypeExpiry           TransactionType = "expiry"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeEarning, TransactionTypeWithdrawRequest, TransactionTypeWithdrawApproved,
		TransactionTypeRejected, TransactionTypeAdjustment, TransactionTypeCorrection, TransactionTypeExpiry:
		return true
	}
	return false
}

// IsManual reports whether the type may be posted through ApplyAdjustment.
func (t TransactionType) IsManual() bool {
	return t == TransactionTypeAdjustment || t == TransactionTypeCorrection || t == TransactionTypeExpiry
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusApproved  TransactionStatus = "approved"
	TransactionStatusRejected  TransactionStatus = "rejected"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Committed reports whether the row contributes to the wallet balance.
func (s TransactionStatus) Committed() bool {
	return s == TransactionStatusApproved || s == TransactionStatusCompleted
}

// PayoutDestination is where an approved withdrawal is paid out.
type PayoutDestination struct {
	Method        string `json:"method"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name,omitempty"`
}

// Transaction is one ledger row. BalanceBefore/BalanceAfter are nil until the
// row is committed.
type Transaction struct {
	ID            string             `json:"id"`
	WalletID      string             `json:"wallet_id"`
	Amount        int64              `json:"amount"` // positive for credit, negative for debit
	Type          TransactionType    `json:"type"`
	Status        TransactionStatus  `json:"status"`
	BalanceBefore *int64             `json:"balance_before,omitempty"`
	BalanceAfter  *int64             `json:"balance_after,omitempty"`
	ReferenceType string             `json:"reference_type,omitempty"`
	ReferenceID   string             `json:"reference_id,omitempty"`
	ActorID       *string            `json:"actor_id,omitempty"` // nil for system actions
	Description   string             `json:"description,omitempty"`
	Destination   *PayoutDestination `json:"destination,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
	ResolvedBy    *string            `json:"resolved_by,omitempty"`
}

// Commit fills the before/after snapshots from the balance observed under lock.
func (t *Transaction) Commit(balanceBefore int64) {
	before := balanceBefore
	after := balanceBefore + t.Amount
	t.BalanceBefore = &before
	t.BalanceAfter = &after
}

// Reference links a ledger row to the object that caused it.
type Reference struct {
	Type string
	ID   string
}

// TransactionFilter narrows ledger range queries.
type TransactionFilter struct {
	WalletID string
	Types    []TransactionType
	Statuses []TransactionStatus
	From     *time.Time
	To       *time.Time
	Page     int32
	PageSize int32
}

// Normalize fills paging defaults.
func (f *TransactionFilter) Normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 200 {
		f.PageSize = 50
	}
}

// Offset returns the row offset for the current page. It is computed in
// int64 so that large page numbers cannot wrap.
func (f TransactionFilter) Offset() int64 {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	return (int64(f.Page) - 1) * int64(f.PageSize)
}

// WithdrawalTransitions is the allowed-transition table for withdrawal requests.
var WithdrawalTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending: {TransactionStatusApproved, TransactionStatusRejected},
}
