package mocks

import (
	"context"

	"github.com/dukex/operion-studio/pkg/execution"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockExecutor is a mock implementation of execution.Executor interface.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, request execution.Request) (*models.RunResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.RunResult), args.Error(1)
}
