package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusApproved   RefundStatus = "approved"
	RefundStatusRejected   RefundStatus = "rejected"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
)

type RefundAction string

const (
	RefundActionApprove  RefundAction = "approve"
	RefundActionReject   RefundAction = "reject"
	RefundActionProcess  RefundAction = "process"
	RefundActionComplete RefundAction = "complete"
	RefundActionFail     RefundAction = "fail"

	// RefundActionCreate is only written to the action log.
	RefundActionCreate RefundAction = "create"
)

// Target maps an action verb to the status it requests.
func (a RefundAction) Target() (RefundStatus, bool) {
	switch a {
	case RefundActionApprove:
		return RefundStatusApproved, true
	case RefundActionReject:
		return RefundStatusRejected, true
	case RefundActionProcess:
		return RefundStatusProcessing, true
	case RefundActionComplete:
		return RefundStatusCompleted, true
	case RefundActionFail:
		return RefundStatusFailed, true
	}
	return "", false
}

type RefundRequest struct {
	ID               string          `json:"id"`
	BookingID        string          `json:"booking_id"`
	BookingAmount    int64           `json:"booking_amount"`
	RefundAmount     int64           `json:"refund_amount"`
	DeductionAmount  int64           `json:"deduction_amount"`
	RefundPercentage decimal.Decimal `json:"refund_percentage"`
	DaysBeforeTrip   int             `json:"days_before_trip"`
	AppliedPolicy    string          `json:"applied_policy"`
	Status           RefundStatus    `json:"status"`
	Reason           string          `json:"reason,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	GatewayReference string          `json:"gateway_reference,omitempty"`
	RequestedBy      *string         `json:"requested_by,omitempty"`
	ProcessedBy      *string         `json:"processed_by,omitempty"`
	TripDate         time.Time       `json:"trip_date"`
	CancelledAt      time.Time       `json:"cancelled_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// RefundActionLog is the audit row written for every refund transition.
type RefundActionLog struct {
	ID         string       `json:"id"`
	RefundID   string       `json:"refund_id"`
	Action     RefundAction `json:"action"`
	FromStatus RefundStatus `json:"from_status"`
	ToStatus   RefundStatus `json:"to_status"`
	ActorID    *string      `json:"actor_id,omitempty"` // nil for gateway callbacks
	Notes      string       `json:"notes,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// RefundTransitions is the allowed-transition table for refund requests.
// Completed and rejected are terminal.
var RefundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending:    {RefundStatusApproved, RefundStatusRejected},
	RefundStatusApproved:   {RefundStatusProcessing, RefundStatusCompleted, RefundStatusFailed},
	RefundStatusProcessing: {RefundStatusCompleted, RefundStatusFailed},
	RefundStatusFailed:     {RefundStatusProcessing, RefundStatusApproved},
}
