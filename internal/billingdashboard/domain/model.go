package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mensalidade/internal/clock"
)

// DashboardMetrics is the flat record behind the billing dashboard.
type DashboardMetrics struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Today       time.Time `json:"today"`

	ReceivedInPeriod    decimal.Decimal `json:"received_in_period"`
	OverdueTotal        decimal.Decimal `json:"overdue_total"`
	DelinquentClients   int             `json:"delinquent_clients"`
	ProjectedReceivable decimal.Decimal `json:"projected_receivable"`
	UpcomingSevenDays   decimal.Decimal `json:"upcoming_seven_days"`

	PaidCount      int `json:"paid_count"`
	CancelledCount int `json:"cancelled_count"`
	OverdueCount   int `json:"overdue_count"`
	OpenCount      int `json:"open_count"`

	Trend []TrendBucket `json:"trend"`

	PaymentsToday       int             `json:"payments_today"`
	PaymentsTodayAmount decimal.Decimal `json:"payments_today_amount"`

	MRR                 decimal.Decimal `json:"mrr"`
	ActiveSubscriptions int             `json:"active_subscriptions"`
	// CancellationRate is a percentage in [0, 100].
	CancellationRate decimal.Decimal `json:"cancellation_rate"`
}

// TrendBucket holds one calendar month of the trend window.
type TrendBucket struct {
	Month    string          `json:"month"`
	Received decimal.Decimal `json:"received"`
	Due      decimal.Decimal `json:"due"`
}

// Options tune Aggregate. The zero value uses UTC and a three month trend.
type Options struct {
	Calendar    clock.Calendar
	TrendMonths int
}

const DefaultTrendMonths = 3

// UpcomingWindowDays is the span after today counted as upcoming, inclusive.
const UpcomingWindowDays = 7

type GetMetricsRequest struct {
	// Start and End are inclusive YYYY-MM-DD dates. Both empty means the current month.
	Start string
	End   string
}

type Service interface {
	GetMetrics(ctx context.Context, req GetMetricsRequest) (DashboardMetrics, error)
}

var (
	ErrInvalidPeriod = errors.New("invalid_period")
)
