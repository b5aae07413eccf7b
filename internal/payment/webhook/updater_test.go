package webhook

import (
	"context"
	"errors"
	"testing"

	"nochex-be/internal/order"
	"nochex-be/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func notification() *payment.Notification {
	return &payment.Notification{
		Channel:  payment.ChannelAPC,
		RemoteIP: "203.0.113.9",
		OrderRef: "1001",
		Token:    "42",
	}
}

func authorised() payment.VerificationOutcome {
	return payment.VerificationOutcome{Channel: payment.ChannelAPC, Authorized: true, Mode: payment.ModeLive}
}

func TestUpdater_Apply(t *testing.T) {
	ctx := context.Background()
	pending := &order.Order{ID: 42, Number: "1001", Status: order.StatusPending}

	t.Run("NotAuthorised", func(t *testing.T) {
		store := new(MockOrderStore)
		w := &recordingWarner{}
		u := NewUpdater(store, w)

		res, err := u.Apply(ctx, notification(), payment.VerificationOutcome{Channel: payment.ChannelAPC, Trace: "IP -> 203.0.113.9"})
		require.NoError(t, err)

		assert.Equal(t, ResultNotAuthorized, res)
		assert.False(t, res.Settled())
		store.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "TransitionToProcessing", mock.Anything, mock.Anything)

		msgs := w.all()
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "APC was not AUTHORISED.")
	})

	t.Run("Transitioned", func(t *testing.T) {
		store := new(MockOrderStore)
		u := NewUpdater(store, &recordingWarner{})
		store.On("GetOrder", ctx, uint(42)).Return(pending, nil)
		store.On("TransitionToProcessing", ctx, uint(42)).Return(order.TransitionApplied, nil)

		res, err := u.Apply(ctx, notification(), authorised())
		require.NoError(t, err)
		assert.Equal(t, ResultTransitioned, res)
		assert.True(t, res.Settled())
		store.AssertExpectations(t)
	})

	t.Run("AlreadyProcessed", func(t *testing.T) {
		store := new(MockOrderStore)
		u := NewUpdater(store, &recordingWarner{})
		store.On("GetOrder", ctx, uint(42)).Return(&order.Order{ID: 42, Number: "1001", Status: order.StatusProcessing}, nil)
		store.On("TransitionToProcessing", ctx, uint(42)).Return(order.TransitionAlreadyProcessing, nil)

		res, err := u.Apply(ctx, notification(), authorised())
		require.NoError(t, err)
		assert.Equal(t, ResultAlreadyProcessed, res)
		assert.True(t, res.Settled())
	})

	t.Run("StateConflict", func(t *testing.T) {
		store := new(MockOrderStore)
		w := &recordingWarner{}
		u := NewUpdater(store, w)
		store.On("GetOrder", ctx, uint(42)).Return(&order.Order{ID: 42, Number: "1001", Status: order.StatusCancelled}, nil)
		store.On("TransitionToProcessing", ctx, uint(42)).Return(order.TransitionStateConflict, nil)

		res, err := u.Apply(ctx, notification(), authorised())
		require.NoError(t, err)
		assert.Equal(t, ResultStateConflict, res)
		assert.Len(t, w.all(), 1)
	})

	t.Run("ReferenceMismatch", func(t *testing.T) {
		store := new(MockOrderStore)
		u := NewUpdater(store, &recordingWarner{})
		store.On("GetOrder", ctx, uint(42)).Return(&order.Order{ID: 42, Number: "9999", Status: order.StatusPending}, nil)

		res, err := u.Apply(ctx, notification(), authorised())
		require.NoError(t, err)
		assert.Equal(t, ResultReferenceMismatch, res)
		store.AssertNotCalled(t, "TransitionToProcessing", mock.Anything, mock.Anything)
	})

	t.Run("OrderNotFound", func(t *testing.T) {
		store := new(MockOrderStore)
		u := NewUpdater(store, &recordingWarner{})
		store.On("GetOrder", ctx, uint(42)).Return(nil, order.ErrOrderNotFound)

		res, err := u.Apply(ctx, notification(), authorised())
		require.NoError(t, err)
		assert.Equal(t, ResultOrderNotFound, res)
	})

	t.Run("NonNumericToken", func(t *testing.T) {
		store := new(MockOrderStore)
		u := NewUpdater(store, &recordingWarner{})
		n := notification()
		n.Token = "abc"

		res, err := u.Apply(ctx, n, authorised())
		require.NoError(t, err)
		assert.Equal(t, ResultOrderNotFound, res)
		store.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
	})

	t.Run("StoreError", func(t *testing.T) {
		store := new(MockOrderStore)
		u := NewUpdater(store, &recordingWarner{})
		store.On("GetOrder", ctx, uint(42)).Return(pending, nil)
		store.On("TransitionToProcessing", ctx, uint(42)).Return(order.TransitionResult(0), errors.New("db down"))

		_, err := u.Apply(ctx, notification(), authorised())
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("LoadError", func(t *testing.T) {
		store := new(MockOrderStore)
		u := NewUpdater(store, &recordingWarner{})
		store.On("GetOrder", ctx, uint(42)).Return(nil, errors.New("db down"))

		_, err := u.Apply(ctx, notification(), authorised())
		assert.Error(t, err)
	})
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "transitioned", ResultTransitioned.String())
	assert.Equal(t, "not_authorized", ResultNotAuthorized.String())
	assert.Equal(t, "reference_mismatch", ResultReferenceMismatch.String())
	assert.Equal(t, "unknown", Result(99).String())
}
