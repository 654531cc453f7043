package domain

import (
	"context"
	"errors"
)

const DefaultBillingCycle = "mensal"

type CreatePlanRequest struct {
	Name         string
	Price        string
	BillingCycle string
}

type Service interface {
	Create(context.Context, CreatePlanRequest) (Plan, error)
	GetByID(ctx context.Context, id string) (Plan, error)
	List(ctx context.Context, activeOnly bool) ([]Plan, error)
	Deactivate(ctx context.Context, id string) error
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidPrice = errors.New("invalid_price")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("plan_not_found")
)
