package webhook

import (
	"context"
	"errors"
	"fmt"

	"nochex-be/internal/logger"
	"nochex-be/internal/order"
	"nochex-be/internal/payment"

	"go.uber.org/zap"
)

// OrderStore is the part of the order service the notification flow needs.
type OrderStore interface {
	GetOrder(ctx context.Context, id uint) (*order.Order, error)
	TransitionToProcessing(ctx context.Context, id uint) (order.TransitionResult, error)
}

type Result int

const (
	ResultNotAuthorized Result = iota
	ResultTransitioned
	ResultAlreadyProcessed
	ResultStateConflict
	ResultReferenceMismatch
	ResultOrderNotFound
)

func (r Result) String() string {
	switch r {
	case ResultNotAuthorized:
		return "not_authorized"
	case ResultTransitioned:
		return "transitioned"
	case ResultAlreadyProcessed:
		return "already_processed"
	case ResultStateConflict:
		return "state_conflict"
	case ResultReferenceMismatch:
		return "reference_mismatch"
	case ResultOrderNotFound:
		return "order_not_found"
	}
	return "unknown"
}

// Settled reports whether the order reflects the payment and the
// notification needs no further attempts.
func (r Result) Settled() bool {
	return r == ResultTransitioned || r == ResultAlreadyProcessed
}

// Updater applies a verification outcome to the order.
type Updater struct {
	store OrderStore
	audit payment.Warner
}

func NewUpdater(store OrderStore, audit payment.Warner) *Updater {
	return &Updater{store: store, audit: audit}
}

// Apply moves the order to processing for an authorized outcome. Only store
// failures are returned as errors; everything else is a Result.
func (u *Updater) Apply(ctx context.Context, n *payment.Notification, outcome payment.VerificationOutcome) (Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("channel", n.Channel.String()),
		zap.String("order_ref", n.OrderRef),
		zap.String("token", n.Token),
	)

	if !outcome.Authorized {
		u.warn(outcome.Message())
		log.Warn("nochex notification not authorised", zap.Error(outcome.Err))
		return ResultNotAuthorized, nil
	}

	log.Info(outcome.Message())

	id, err := order.ParseID(n.Token)
	if err != nil {
		u.warn(fmt.Sprintf("%s for unknown order token %q", outcome.Message(), n.Token))
		return ResultOrderNotFound, nil
	}

	o, err := u.store.GetOrder(ctx, id)
	if errors.Is(err, order.ErrOrderNotFound) {
		u.warn(fmt.Sprintf("%s Order %d does not exist.", outcome.Message(), id))
		return ResultOrderNotFound, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load order %d: %w", id, err)
	}

	if o.Number != n.OrderRef {
		u.warn(fmt.Sprintf("%s Order reference %q does not match order %d (%q).", outcome.Message(), n.OrderRef, id, o.Number))
		log.Warn("nochex order reference mismatch", zap.String("expected", o.Number))
		return ResultReferenceMismatch, nil
	}

	res, err := u.store.TransitionToProcessing(ctx, id)
	if errors.Is(err, order.ErrOrderNotFound) {
		return ResultOrderNotFound, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to transition order %d: %w", id, err)
	}

	switch res {
	case order.TransitionApplied:
		return ResultTransitioned, nil
	case order.TransitionAlreadyProcessing:
		return ResultAlreadyProcessed, nil
	default:
		u.warn(fmt.Sprintf("%s Order %d is no longer pending and was left unchanged.", outcome.Message(), id))
		return ResultStateConflict, nil
	}
}

func (u *Updater) warn(msg string) {
	if u.audit != nil {
		u.audit.Warn(msg)
	}
}
