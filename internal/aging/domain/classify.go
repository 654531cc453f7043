package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mensalidade/internal/clock"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
)

// ClassifyClients assigns every client owning a recurring installment to one
// tier. Only the reference installment (latest recurring due date) counts.
func ClassifyClients(installments []installmentdomain.Installment, today time.Time, thresholds Thresholds) Result {
	today = clock.Truncate(today)

	reference := make(map[snowflake.ID]installmentdomain.Installment)
	for _, inst := range installments {
		if !inst.IsRecurring {
			continue
		}
		current, ok := reference[inst.ClientID]
		if !ok || supersedes(inst, current) {
			reference[inst.ClientID] = inst
		}
	}

	result := Result{
		Clients: make(map[snowflake.ID]Classification, len(reference)),
		Summary: make(map[Tier]TierSummary, len(Tiers)),
	}
	for _, tier := range Tiers {
		result.Summary[tier] = TierSummary{Amount: decimal.Zero}
	}

	for clientID, inst := range reference {
		c := classify(inst, today, thresholds)
		c.ClientID = clientID
		result.Clients[clientID] = c

		summary := result.Summary[c.Tier]
		summary.Amount = summary.Amount.Add(c.Amount)
		summary.Clients++
		result.Summary[c.Tier] = summary
	}

	return result
}

func classify(inst installmentdomain.Installment, today time.Time, thresholds Thresholds) Classification {
	c := Classification{
		ReferenceInstallmentID: inst.ID,
		Amount:                 inst.Amount,
	}
	if inst.Status == installmentdomain.StatusPaid {
		c.Tier = TierEmDia
		return c
	}

	c.DaysLate = max(0, clock.DaysBetween(inst.DueDate, today))
	c.Tier = TierFor(c.DaysLate, thresholds)
	return c
}

// TierFor maps days late to a tier. Zero days late (due today or later) is EmDia.
func TierFor(daysLate int, thresholds Thresholds) Tier {
	switch {
	case daysLate <= 0:
		return TierEmDia
	case daysLate <= thresholds.RecentMaxDays:
		return TierAtrasoRecente
	case daysLate <= thresholds.BlockedMaxDays:
		return TierBloqueado
	default:
		return TierInativo
	}
}

// supersedes orders candidates by due date, then sequence number, then id.
func supersedes(a, b installmentdomain.Installment) bool {
	ad, bd := clock.Truncate(a.DueDate), clock.Truncate(b.DueDate)
	if !ad.Equal(bd) {
		return ad.After(bd)
	}
	if a.SequenceNumber != b.SequenceNumber {
		return a.SequenceNumber > b.SequenceNumber
	}
	return a.ID > b.ID
}
