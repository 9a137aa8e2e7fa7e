package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/repository"
	"tourledger-backend/internal/utils"
)

type refundService struct {
	core
}

func NewRefundService(d Deps) RefundService {
	return &refundService{core: newCore(d)}
}

// CalculateRefund quotes a cancellation against the active policy set.
// cancellationDate defaults to now.
func (s *refundService) CalculateRefund(ctx context.Context, bookingAmount int64, tripDate time.Time, cancellationDate *time.Time) (*domain.RefundCalculation, error) {
	policies, err := s.store.Repos().Policies.ListActivePolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cancellation policies: %w", err)
	}
	cancelledAt := s.clock.Now()
	if cancellationDate != nil {
		cancelledAt = *cancellationDate
	}
	calc, err := utils.CalculateRefund(bookingAmount, tripDate, cancelledAt, policies)
	if err != nil {
		return nil, err
	}
	return &calc, nil
}

func (s *refundService) CreateRefund(ctx context.Context, in RefundInput) (*domain.RefundRequest, error) {
	if in.BookingID == "" {
		return nil, domain.NewValidationError("booking_id", "is required")
	}
	calc, err := s.CalculateRefund(ctx, in.BookingAmount, in.TripDate, in.CancellationDate)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cancelledAt := now
	if in.CancellationDate != nil {
		cancelledAt = *in.CancellationDate
	}
	ref := &domain.RefundRequest{
		ID:               newID(),
		BookingID:        in.BookingID,
		BookingAmount:    calc.BookingAmount,
		RefundAmount:     calc.RefundAmount,
		DeductionAmount:  calc.DeductionAmount,
		RefundPercentage: calc.RefundPercentage,
		DaysBeforeTrip:   calc.DaysBeforeTrip,
		AppliedPolicy:    calc.PolicyName,
		Status:           domain.RefundStatusPending,
		Reason:           in.Reason,
		RequestedBy:      in.RequestedBy,
		TripDate:         in.TripDate,
		CancelledAt:      cancelledAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.runInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Refunds.FindActiveRefund(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.DuplicateRequestError{Key: "booking " + in.BookingID, ExistingID: existing.ID}
		}
		if err := repos.Refunds.CreateRefund(ctx, ref); err != nil {
			return err
		}
		return repos.Refunds.AppendAction(ctx, &domain.RefundActionLog{
			ID:        newID(),
			RefundID:  ref.ID,
			Action:    domain.RefundActionCreate,
			ToStatus:  domain.RefundStatusPending,
			ActorID:   in.RequestedBy,
			Notes:     in.Reason,
			CreatedAt: now,
		})
	})
	s.metrics.ObserveRefundTransition(string(domain.RefundActionCreate), err)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Refund request created",
		"refund_id", ref.ID, "booking_id", ref.BookingID, "policy", ref.AppliedPolicy, "refund_amount", ref.RefundAmount)
	s.notify.Dispatch(ctx, financeRecipient, refundNotification(ref, domain.RefundActionCreate))
	return ref, nil
}

// ProcessRefund applies one workflow action. An action the current status
// does not allow fails with ErrInvalidTransition and changes nothing.
func (s *refundService) ProcessRefund(ctx context.Context, in ProcessRefundInput) (*domain.RefundRequest, error) {
	target, ok := in.Action.Target()
	if !ok {
		return nil, domain.NewValidationError("action", fmt.Sprintf("unknown refund action %q", in.Action))
	}
	if err := validateID("refund_id", in.RefundID); err != nil {
		return nil, err
	}

	var result *domain.RefundRequest
	err := s.runInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ref, err := repos.Refunds.GetRefundForUpdate(ctx, in.RefundID)
		if err != nil {
			return err
		}
		from := ref.Status
		if _, err := refundMachine.Transition(from, target); err != nil {
			return err
		}

		now := s.clock.Now()
		ref.Status = target
		ref.UpdatedAt = now
		if in.Notes != "" {
			ref.Notes = in.Notes
		}
		if in.GatewayReference != "" {
			ref.GatewayReference = in.GatewayReference
		}
		if in.ActorID != nil {
			ref.ProcessedBy = in.ActorID
		}
		if target == domain.RefundStatusCompleted {
			ref.CompletedAt = &now
		}
		if err := repos.Refunds.UpdateRefundStatus(ctx, ref, from); err != nil {
			return err
		}
		if err := repos.Refunds.AppendAction(ctx, &domain.RefundActionLog{
			ID:         newID(),
			RefundID:   ref.ID,
			Action:     in.Action,
			FromStatus: from,
			ToStatus:   target,
			ActorID:    in.ActorID,
			Notes:      in.Notes,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		result = ref
		return nil
	})
	s.metrics.ObserveRefundTransition(string(in.Action), err)
	if err != nil {
		if !isExpected(err) {
			logger.ErrorContext(ctx, "Failed to process refund", "refund_id", in.RefundID, "action", in.Action, "error", err)
		}
		return nil, err
	}

	logger.InfoContext(ctx, "Refund transitioned", "refund_id", result.ID, "action", in.Action, "status", result.Status)
	s.notify.Dispatch(ctx, financeRecipient, refundNotification(result, in.Action))
	return result, nil
}

func (s *refundService) GetRefund(ctx context.Context, refundID string) (*domain.RefundRequest, []domain.RefundActionLog, error) {
	if err := validateID("refund_id", refundID); err != nil {
		return nil, nil, err
	}
	repos := s.store.Repos()
	ref, err := repos.Refunds.GetRefund(ctx, refundID)
	if err != nil {
		return nil, nil, err
	}
	actions, err := repos.Refunds.ListActions(ctx, refundID)
	if err != nil {
		return nil, nil, err
	}
	return ref, actions, nil
}

func refundNotification(ref *domain.RefundRequest, action domain.RefundAction) domain.Notification {
	return domain.Notification{
		Type:    domain.NotificationTypeRefundUpdated,
		Title:   fmt.Sprintf("Refund %s", ref.Status),
		Message: fmt.Sprintf("Refund for booking %s is %s (%d of %d)", ref.BookingID, ref.Status, ref.RefundAmount, ref.BookingAmount),
		Attributes: map[string]string{
			"refund_id":     ref.ID,
			"booking_id":    ref.BookingID,
			"action":        string(action),
			"status":        string(ref.Status),
			"refund_amount": strconv.FormatInt(ref.RefundAmount, 10),
		},
		CreatedAt: ref.UpdatedAt,
	}
}
