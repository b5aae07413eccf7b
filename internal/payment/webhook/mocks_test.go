package webhook

import (
	"context"
	"sync"
	"time"

	"nochex-be/internal/order"
	"nochex-be/internal/payment"

	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) GetOrder(ctx context.Context, id uint) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderStore) TransitionToProcessing(ctx context.Context, id uint) (order.TransitionResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(order.TransitionResult), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) SaveNotification(ctx context.Context, rec *payment.NotificationRecord) (int64, bool, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockNotificationRepository) MarkNotificationProcessed(ctx context.Context, id int64, outcome string) error {
	args := m.Called(ctx, id, outcome)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkNotificationFailed(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockNotificationRepository) PurgeNotificationsBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, n *payment.Notification) payment.VerificationOutcome {
	args := m.Called(ctx, n)
	return args.Get(0).(payment.VerificationOutcome)
}

type recordingWarner struct {
	mu       sync.Mutex
	messages []string
}

func (w *recordingWarner) Warn(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, message)
}

func (w *recordingWarner) all() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.messages...)
}
