package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MockClock implements namespace.Clock for testing across packages
type MockClock struct {
	mock.Mock
}

func (m *MockClock) Now() time.Time {
	args := m.Called()

	// Handle function return types (for advancing clocks)
	if fn, ok := args.Get(0).(func() time.Time); ok {
		return fn()
	}
	return args.Get(0).(time.Time)
}

// NewSteppingClock returns a MockClock starting at start that advances by step
// on every call to Now.
func NewSteppingClock(start time.Time, step time.Duration) *MockClock {
	next := start
	m := &MockClock{}
	m.On("Now").Return(func() time.Time {
		now := next
		next = next.Add(step)
		return now
	})
	return m
}
