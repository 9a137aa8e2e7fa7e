package domain

import "github.com/shopspring/decimal"

const ExpiredPolicyName = "expired"

// CancellationPolicy is one refund tier. A policy applies when the booking is
// cancelled at least DaysBeforeTrip days ahead of the trip.
type CancellationPolicy struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	DaysBeforeTrip   int             `json:"days_before_trip"`
	RefundPercentage decimal.Decimal `json:"refund_percentage"`
	Priority         int             `json:"priority"` // higher wins when thresholds tie
	Active           bool            `json:"active"`
}

// RefundCalculation is the outcome of applying the policy set to a cancellation.
type RefundCalculation struct {
	BookingAmount    int64           `json:"booking_amount"`
	RefundAmount     int64           `json:"refund_amount"`
	DeductionAmount  int64           `json:"deduction_amount"`
	RefundPercentage decimal.Decimal `json:"refund_percentage"`
	DaysBeforeTrip   int             `json:"days_before_trip"`
	PolicyName       string          `json:"policy_name"`
	PolicyID         string          `json:"policy_id,omitempty"`
}
