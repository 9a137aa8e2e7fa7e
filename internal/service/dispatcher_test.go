package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestDispatcher(t *testing.T) {
	recipient := domain.Recipient{Role: "finance"}
	n := domain.Notification{Type: domain.NotificationTypeWithdrawalRequested, Title: "t"}

	t.Run("Delivers After Caller Context Is Cancelled", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("Send", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), recipient, n).Return(nil).Once()
		d := service.NewDispatcher(notifier, time.Second, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.Dispatch(ctx, recipient, n)
		d.Wait()
		notifier.AssertExpectations(t)
	})

	t.Run("Failure Is Swallowed", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("Send", mock.Anything, recipient, n).Return(errors.New("boom")).Once()
		d := service.NewDispatcher(notifier, time.Second, nil)

		assert.NotPanics(t, func() {
			d.Dispatch(context.Background(), recipient, n)
			d.Wait()
		})
		notifier.AssertExpectations(t)
	})

	t.Run("Nil Dispatcher Is A No-op", func(t *testing.T) {
		var d *service.Dispatcher
		assert.NotPanics(t, func() {
			d.Dispatch(context.Background(), recipient, n)
			d.Wait()
		})
	})
}
