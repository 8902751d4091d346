package queue

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockQueue is a mock implementation of Queue using testify/mock.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Request(ctx context.Context, subject string, body []byte) ([]byte, error) {
	args := m.Called(ctx, subject, body)
	reply, _ := args.Get(0).([]byte)
	return reply, args.Error(1)
}

func (m *MockQueue) Serve(ctx context.Context, subject, group string, handler Handler) error {
	args := m.Called(ctx, subject, group, handler)
	return args.Error(0)
}

func (m *MockQueue) Close() {
	m.Called()
}
