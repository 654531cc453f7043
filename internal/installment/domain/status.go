package domain

import (
	"time"

	"github.com/smallbiznis/mensalidade/internal/clock"
)

// EffectiveStatus is the status of an installment as observed on a given day.
type EffectiveStatus string

const (
	EffectivePaid      EffectiveStatus = "paid"
	EffectiveOpen      EffectiveStatus = "open"
	EffectiveOverdue   EffectiveStatus = "overdue"
	EffectiveCancelled EffectiveStatus = "cancelled"
)

// ResolveStatus derives the effective status of inst on the calendar date today.
// A stored pending (or legacy overdue) row is overdue only when its due date
// is strictly before today.
func ResolveStatus(inst Installment, today time.Time) EffectiveStatus {
	switch inst.Status {
	case StatusPaid:
		return EffectivePaid
	case StatusCancelled:
		return EffectiveCancelled
	}
	if clock.Truncate(inst.DueDate).Before(clock.Truncate(today)) {
		return EffectiveOverdue
	}
	return EffectiveOpen
}

func (i Installment) EffectiveStatus(today time.Time) EffectiveStatus {
	return ResolveStatus(i, today)
}

// IsOutstanding reports whether money is still expected for the installment.
func (s EffectiveStatus) IsOutstanding() bool {
	return s == EffectiveOpen || s == EffectiveOverdue
}

func NewView(inst Installment, today time.Time) View {
	return View{Installment: inst, EffectiveStatus: ResolveStatus(inst, today)}
}
