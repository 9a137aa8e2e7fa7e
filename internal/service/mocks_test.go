package service_test

import (
	"context"

	"tourledger-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, recipient domain.Recipient, n domain.Notification) error {
	args := m.Called(ctx, recipient, n)
	return args.Error(0)
}

type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) ReportDiscrepancy(ctx context.Context, result domain.ReconciliationResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}
