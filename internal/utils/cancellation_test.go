package utils

import (
	"testing"
	"time"

	"tourledger-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tiers() []domain.CancellationPolicy {
	return []domain.CancellationPolicy{
		{ID: "p0", Name: "late", DaysBeforeTrip: 0, RefundPercentage: decimal.NewFromInt(0)},
		{ID: "p7", Name: "full", DaysBeforeTrip: 7, RefundPercentage: decimal.NewFromInt(100)},
		{ID: "p3", Name: "half", DaysBeforeTrip: 3, RefundPercentage: decimal.NewFromInt(50)},
	}
}

var trip = time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)

func TestDaysBeforeTrip(t *testing.T) {
	t.Run("Whole days", func(t *testing.T) {
		assert.Equal(t, 10, DaysBeforeTrip(trip, trip.AddDate(0, 0, -10)))
	})

	t.Run("Partial day rounds up", func(t *testing.T) {
		assert.Equal(t, 3, DaysBeforeTrip(trip, trip.Add(-50*time.Hour)))
	})

	t.Run("Shortly after departure is zero", func(t *testing.T) {
		assert.Equal(t, 0, DaysBeforeTrip(trip, trip.Add(time.Hour)))
	})

	t.Run("A day after departure is negative", func(t *testing.T) {
		assert.Equal(t, -1, DaysBeforeTrip(trip, trip.AddDate(0, 0, 1)))
	})
}

func TestCalculateRefund(t *testing.T) {
	t.Run("Ten days ahead gets a full refund", func(t *testing.T) {
		calc, err := CalculateRefund(2000000, trip, trip.AddDate(0, 0, -10), tiers())
		require.NoError(t, err)
		assert.Equal(t, int64(2000000), calc.RefundAmount)
		assert.Equal(t, int64(0), calc.DeductionAmount)
		assert.Equal(t, "full", calc.PolicyName)
		assert.Equal(t, 10, calc.DaysBeforeTrip)
	})

	t.Run("After the trip is expired", func(t *testing.T) {
		calc, err := CalculateRefund(2000000, trip, trip.AddDate(0, 0, 1), tiers())
		require.NoError(t, err)
		assert.Equal(t, int64(0), calc.RefundAmount)
		assert.Equal(t, int64(2000000), calc.DeductionAmount)
		assert.Equal(t, domain.ExpiredPolicyName, calc.PolicyName)
	})

	t.Run("Middle tier", func(t *testing.T) {
		calc, err := CalculateRefund(2000000, trip, trip.AddDate(0, 0, -5), tiers())
		require.NoError(t, err)
		assert.Equal(t, "half", calc.PolicyName)
		assert.Equal(t, int64(1000000), calc.RefundAmount)
		assert.Equal(t, int64(1000000), calc.DeductionAmount)
	})

	t.Run("Threshold is inclusive", func(t *testing.T) {
		calc, err := CalculateRefund(100, trip, trip.AddDate(0, 0, -7), tiers())
		require.NoError(t, err)
		assert.Equal(t, "full", calc.PolicyName)
	})

	t.Run("No qualifying tier falls back to the strictest", func(t *testing.T) {
		policies := []domain.CancellationPolicy{
			{Name: "week", DaysBeforeTrip: 7, RefundPercentage: decimal.NewFromInt(80)},
			{Name: "two-days", DaysBeforeTrip: 2, RefundPercentage: decimal.NewFromInt(25)},
		}
		calc, err := CalculateRefund(1000, trip, trip.Add(-12*time.Hour), policies)
		require.NoError(t, err)
		assert.Equal(t, 1, calc.DaysBeforeTrip)
		assert.Equal(t, "two-days", calc.PolicyName)
		assert.Equal(t, int64(250), calc.RefundAmount)
	})

	t.Run("Equal thresholds resolved by priority", func(t *testing.T) {
		policies := []domain.CancellationPolicy{
			{Name: "standard", DaysBeforeTrip: 3, RefundPercentage: decimal.NewFromInt(50), Priority: 1},
			{Name: "promo", DaysBeforeTrip: 3, RefundPercentage: decimal.NewFromInt(75), Priority: 5},
		}
		calc, err := CalculateRefund(1000, trip, trip.AddDate(0, 0, -4), policies)
		require.NoError(t, err)
		assert.Equal(t, "promo", calc.PolicyName)

		// Reversing the input order does not change the outcome.
		calc2, err := CalculateRefund(1000, trip, trip.AddDate(0, 0, -4), []domain.CancellationPolicy{policies[1], policies[0]})
		require.NoError(t, err)
		assert.Equal(t, calc, calc2)
	})

	t.Run("Rounds half away from zero", func(t *testing.T) {
		policies := []domain.CancellationPolicy{
			{Name: "odd", DaysBeforeTrip: 0, RefundPercentage: decimal.RequireFromString("50")},
		}
		calc, err := CalculateRefund(101, trip, trip.AddDate(0, 0, -1), policies)
		require.NoError(t, err)
		assert.Equal(t, int64(51), calc.RefundAmount)
		assert.Equal(t, int64(50), calc.DeductionAmount)
	})

	t.Run("Fractional percentage", func(t *testing.T) {
		assert.Equal(t, int64(333), RefundAmount(1000, decimal.RequireFromString("33.33")))
	})

	t.Run("No policies means no refund", func(t *testing.T) {
		calc, err := CalculateRefund(1000, trip, trip.AddDate(0, 0, -30), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), calc.RefundAmount)
		assert.Equal(t, int64(1000), calc.DeductionAmount)
	})

	t.Run("Negative booking amount", func(t *testing.T) {
		_, err := CalculateRefund(-1, trip, trip, tiers())
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Percentage out of range", func(t *testing.T) {
		policies := []domain.CancellationPolicy{{Name: "bad", RefundPercentage: decimal.NewFromInt(120)}}
		_, err := CalculateRefund(1000, trip, trip, policies)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Input slice is not reordered", func(t *testing.T) {
		policies := tiers()
		_, err := CalculateRefund(1000, trip, trip.AddDate(0, 0, -10), policies)
		require.NoError(t, err)
		assert.Equal(t, "late", policies[0].Name)
	})
}
