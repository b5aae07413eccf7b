package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"nochex-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	GetOrder(ctx context.Context, id uint) (*Order, error)
	TransitionToProcessing(ctx context.Context, id uint) (TransitionResult, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ParseID converts an order id received as text (form fields, URL params).
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return uint(id), nil
}

func (s *service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", id))

	if id == 0 {
		return nil, ErrInvalidID
	}

	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn("order not found")
		} else {
			log.Error("failed to load order", zap.Error(err))
		}
		return nil, err
	}

	return o, nil
}

func (s *service) TransitionToProcessing(ctx context.Context, id uint) (TransitionResult, error) {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", id))

	if id == 0 {
		return 0, ErrInvalidID
	}

	result, err := s.repo.TransitionToProcessing(ctx, id)
	if err != nil {
		log.Error("order transition failed", zap.Error(err))
		return 0, err
	}

	switch result {
	case TransitionApplied:
		log.Info("order moved to processing")
	case TransitionAlreadyProcessing:
		log.Info("order already processing, transition skipped")
	case TransitionStateConflict:
		log.Warn("order not pending, transition skipped")
	}

	return result, nil
}
