package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type CreateInstallmentRequest struct {
	ClientID       string
	Amount         string
	DueDate        string
	IsRecurring    bool
	SequenceNumber int
	Metadata       map[string]any
}

type SetStatusRequest struct {
	ID     string
	Status string
}

type Service interface {
	Create(ctx context.Context, req CreateInstallmentRequest) (Installment, error)
	Get(ctx context.Context, id string) (View, error)
	ListByClient(ctx context.Context, clientID string) ([]View, error)
	ListAll(ctx context.Context) ([]Installment, error)
	// SetStatus applies a manual pending/paid/cancelled toggle.
	SetStatus(ctx context.Context, req SetStatusRequest) (View, error)
	// MarkPaid records a settlement reported by the payment gateway.
	MarkPaid(ctx context.Context, id string, paidAt time.Time) (View, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidClient   = errors.New("invalid_client")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrMissingDueDate  = errors.New("missing_due_date")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidMetadata = errors.New("invalid_metadata")
	ErrNotFound        = errors.New("installment_not_found")
	ErrClientNotFound  = errors.New("client_not_found")
	ErrInvalidSequence = errors.New("invalid_sequence_number")
)

// Validate rejects rows the read-side calculations are not prepared to see.
func Validate(inst Installment) error {
	if inst.ClientID == 0 {
		return ErrInvalidClient
	}
	if inst.Amount.LessThan(decimal.Zero) {
		return ErrInvalidAmount
	}
	if inst.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	if !inst.Status.Valid() {
		return ErrInvalidStatus
	}
	if inst.SequenceNumber < 0 {
		return ErrInvalidSequence
	}
	return nil
}
