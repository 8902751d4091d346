package preview

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPreviewer is a mock implementation of Previewer using testify/mock.
type MockPreviewer struct {
	mock.Mock
}

func (m *MockPreviewer) Preview(ctx context.Context, req Request) (Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Response), args.Error(1)
}
