package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	"github.com/smallbiznis/mensalidade/internal/clock"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
)

const monthKeyLayout = "2006-01"

var hundred = decimal.NewFromInt(100)

// Aggregate computes every dashboard figure in one pass over installments and
// one pass over clients. Dates are inclusive calendar dates; settlement
// instants (UpdatedAt of paid rows) are mapped through opts.Calendar.
func Aggregate(
	installments []installmentdomain.Installment,
	clients []clientdomain.Snapshot,
	periodStart, periodEnd, today time.Time,
	opts Options,
) DashboardMetrics {
	periodStart = clock.Truncate(periodStart)
	periodEnd = clock.Truncate(periodEnd)
	today = clock.Truncate(today)

	trendMonths := opts.TrendMonths
	if trendMonths <= 0 {
		trendMonths = DefaultTrendMonths
	}
	trendStart := clock.MonthStart(today).AddDate(0, -(trendMonths - 1), 0)
	trendEnd := clock.MonthEnd(today)
	upcomingEnd := clock.AddDays(today, UpcomingWindowDays)

	m := DashboardMetrics{
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		Today:               today,
		ReceivedInPeriod:    decimal.Zero,
		OverdueTotal:        decimal.Zero,
		ProjectedReceivable: decimal.Zero,
		UpcomingSevenDays:   decimal.Zero,
		PaymentsTodayAmount: decimal.Zero,
		MRR:                 decimal.Zero,
		CancellationRate:    decimal.Zero,
	}

	trend := make([]TrendBucket, trendMonths)
	bucketIndex := make(map[string]int, trendMonths)
	for i := range trend {
		key := trendStart.AddDate(0, i, 0).Format(monthKeyLayout)
		trend[i] = TrendBucket{Month: key, Received: decimal.Zero, Due: decimal.Zero}
		bucketIndex[key] = i
	}

	active := make(map[snowflake.ID]struct{}, len(clients))
	for _, c := range clients {
		if !c.Deleted {
			active[c.ID] = struct{}{}
		}
	}
	delinquent := make(map[snowflake.ID]struct{})

	for _, inst := range installments {
		status := installmentdomain.ResolveStatus(inst, today)
		due := clock.Truncate(inst.DueDate)

		switch status {
		case installmentdomain.EffectivePaid:
			m.PaidCount++
			settled := opts.Calendar.DateOf(inst.UpdatedAt)
			if within(settled, periodStart, periodEnd) {
				m.ReceivedInPeriod = m.ReceivedInPeriod.Add(inst.Amount)
			}
			if within(settled, trendStart, trendEnd) {
				i := bucketIndex[settled.Format(monthKeyLayout)]
				trend[i].Received = trend[i].Received.Add(inst.Amount)
			}
			if settled.Equal(today) {
				m.PaymentsToday++
				m.PaymentsTodayAmount = m.PaymentsTodayAmount.Add(inst.Amount)
			}
		case installmentdomain.EffectiveCancelled:
			m.CancelledCount++
		case installmentdomain.EffectiveOverdue:
			m.OverdueCount++
			if _, ok := active[inst.ClientID]; ok {
				m.OverdueTotal = m.OverdueTotal.Add(inst.Amount)
				delinquent[inst.ClientID] = struct{}{}
			}
		default:
			m.OpenCount++
		}

		if status.IsOutstanding() {
			if within(due, periodStart, periodEnd) {
				m.ProjectedReceivable = m.ProjectedReceivable.Add(inst.Amount)
			}
			if within(due, today, upcomingEnd) {
				m.UpcomingSevenDays = m.UpcomingSevenDays.Add(inst.Amount)
			}
		}

		if within(due, trendStart, trendEnd) {
			i := bucketIndex[due.Format(monthKeyLayout)]
			trend[i].Due = trend[i].Due.Add(inst.Amount)
		}
	}

	m.Trend = trend
	m.DelinquentClients = len(delinquent)

	total, inactive := 0, 0
	for _, c := range clients {
		if c.Deleted {
			continue
		}
		total++
		if !c.SubscriptionActive {
			inactive++
			continue
		}
		if c.PlanPrice != nil {
			m.MRR = m.MRR.Add(*c.PlanPrice)
			m.ActiveSubscriptions++
		}
	}
	if total > 0 {
		m.CancellationRate = decimal.NewFromInt(int64(inactive)).
			Mul(hundred).
			DivRound(decimal.NewFromInt(int64(total)), 2)
	}

	return m
}

func within(date, start, end time.Time) bool {
	return !date.Before(start) && !date.After(end)
}
