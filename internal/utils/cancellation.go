package utils

import (
	"math"
	"sort"
	"time"

	"tourledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DaysBeforeTrip returns ceil((trip - cancellation) / 24h). A cancellation one
// hour before departure counts as 1 day, one hour after departure as 0 days.
func DaysBeforeTrip(tripDate, cancellationDate time.Time) int {
	hours := tripDate.Sub(cancellationDate).Hours()
	days := math.Ceil(hours / 24)
	if days == 0 {
		return 0 // normalize -0
	}
	return int(days)
}

// SortPolicies orders policies by descending threshold. Ties go to the higher
// priority, then to the name so the order never depends on storage.
func SortPolicies(policies []domain.CancellationPolicy) []domain.CancellationPolicy {
	sorted := make([]domain.CancellationPolicy, len(policies))
	copy(sorted, policies)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.DaysBeforeTrip != b.DaysBeforeTrip {
			return a.DaysBeforeTrip > b.DaysBeforeTrip
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Name < b.Name
	})
	return sorted
}

// SelectPolicy picks the first sorted policy whose threshold is <= days. When
// none qualifies the most restrictive policy (lowest refund, then lowest
// threshold) applies. ok is false only when policies is empty.
func SelectPolicy(days int, policies []domain.CancellationPolicy) (domain.CancellationPolicy, bool) {
	if len(policies) == 0 {
		return domain.CancellationPolicy{}, false
	}
	sorted := SortPolicies(policies)
	for _, p := range sorted {
		if p.DaysBeforeTrip <= days {
			return p, true
		}
	}

	strictest := sorted[0]
	for _, p := range sorted[1:] {
		cmp := p.RefundPercentage.Cmp(strictest.RefundPercentage)
		if cmp < 0 || (cmp == 0 && p.DaysBeforeTrip < strictest.DaysBeforeTrip) {
			strictest = p
		}
	}
	return strictest, true
}

// CalculateRefund maps a cancellation to a refund amount using the tiered
// policy set. It is pure: the caller supplies the cancellation instant.
func CalculateRefund(bookingAmount int64, tripDate, cancellationDate time.Time, policies []domain.CancellationPolicy) (domain.RefundCalculation, error) {
	if bookingAmount < 0 {
		return domain.RefundCalculation{}, domain.NewValidationError("booking_amount", "must not be negative")
	}
	if tripDate.IsZero() {
		return domain.RefundCalculation{}, domain.NewValidationError("trip_date", "is required")
	}
	for _, p := range policies {
		if p.RefundPercentage.IsNegative() || p.RefundPercentage.GreaterThan(hundred) {
			return domain.RefundCalculation{}, domain.NewValidationError("refund_percentage",
				"policy "+p.Name+" must be between 0 and 100")
		}
		if p.DaysBeforeTrip < 0 {
			return domain.RefundCalculation{}, domain.NewValidationError("days_before_trip",
				"policy "+p.Name+" must not be negative")
		}
	}

	days := DaysBeforeTrip(tripDate, cancellationDate)
	calc := domain.RefundCalculation{
		BookingAmount:  bookingAmount,
		DaysBeforeTrip: days,
	}

	var policy domain.CancellationPolicy
	if days < 0 {
		policy = domain.CancellationPolicy{Name: domain.ExpiredPolicyName, RefundPercentage: decimal.Zero}
	} else if p, ok := SelectPolicy(days, policies); ok {
		policy = p
	} else {
		// No tiers configured: nothing is refundable.
		policy = domain.CancellationPolicy{Name: "none", RefundPercentage: decimal.Zero}
	}

	calc.PolicyID = policy.ID
	calc.PolicyName = policy.Name
	calc.RefundPercentage = policy.RefundPercentage
	calc.RefundAmount = RefundAmount(bookingAmount, policy.RefundPercentage)
	calc.DeductionAmount = bookingAmount - calc.RefundAmount
	return calc, nil
}

// RefundAmount returns round(amount * pct / 100), half away from zero.
func RefundAmount(amount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Round(0).IntPart()
}
