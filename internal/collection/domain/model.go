package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
)

const (
	DefaultLookaheadDays = 3
	DefaultLimit         = 20
)

// QueueEntry is one installment selected for a reminder, with its addressee.
type QueueEntry struct {
	installmentdomain.View
	ClientName string `json:"client_name"`
	Phone      string `json:"phone"`
}

// MarkSentResult reports whether this call flipped the flag. A false value
// means another caller already handled the installment.
type MarkSentResult struct {
	Claimed bool `json:"claimed"`
}

type DispatchSummary struct {
	Selected int `json:"selected"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// ReminderData feeds the reminder templates.
type ReminderData struct {
	ClientName string
	Amount     string
	DueDate    string
	DaysLate   int
}

type Service interface {
	Queue(ctx context.Context) ([]QueueEntry, error)
	MarkSent(ctx context.Context, installmentID string) (MarkSentResult, error)
	// CancelSend stops reminders for the installment permanently.
	CancelSend(ctx context.Context, installmentID string) error
	ResetDailyFlags(ctx context.Context) (int64, error)
	Dispatch(ctx context.Context) (DispatchSummary, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInstallmentNotFound = errors.New("installment_not_found")
	ErrDispatchInProgress  = errors.New("dispatch_in_progress")
	ErrInvalidTemplate     = errors.New("invalid_template")
)

// FormatAmount renders money the way reminders show it (comma decimal separator).
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	intPart, frac := fixed[:len(fixed)-3], fixed[len(fixed)-2:]
	return intPart + "," + frac
}
