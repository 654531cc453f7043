package domain

import (
	"slices"
	"time"

	"github.com/smallbiznis/mensalidade/internal/clock"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
)

// IsEligible reports whether inst may receive a reminder on today. Long
// overdue installments stay eligible until paid or cancelled for sending.
func IsEligible(inst installmentdomain.Installment, today time.Time, lookaheadDays int) bool {
	if inst.Status != installmentdomain.StatusPending || inst.SentToday || inst.SendCancelled {
		return false
	}
	return !clock.Truncate(inst.DueDate).After(clock.AddDays(today, lookaheadDays))
}

// SelectEligible returns the eligible installments oldest due date first,
// truncated to limit. Ties keep sequence number then id order.
func SelectEligible(installments []installmentdomain.Installment, today time.Time, lookaheadDays, limit int) []installmentdomain.Installment {
	selected := make([]installmentdomain.Installment, 0, min(len(installments), max(limit, 0)))
	for _, inst := range installments {
		if IsEligible(inst, today, lookaheadDays) {
			selected = append(selected, inst)
		}
	}

	slices.SortStableFunc(selected, func(a, b installmentdomain.Installment) int {
		if c := clock.Truncate(a.DueDate).Compare(clock.Truncate(b.DueDate)); c != 0 {
			return c
		}
		if a.SequenceNumber != b.SequenceNumber {
			return a.SequenceNumber - b.SequenceNumber
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	if limit >= 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}
