package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/mensalidade/internal/billingdashboard/domain"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/config"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	Calendar        clock.Calendar
	Billing         *config.BillingConfigHolder
	ClientRepo      clientdomain.Repository
	InstallmentRepo installmentdomain.Repository
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	calendar        clock.Calendar
	billing         *config.BillingConfigHolder
	clientRepo      clientdomain.Repository
	installmentRepo installmentdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("billingdashboard.service"),
		clock:           p.Clock,
		calendar:        p.Calendar,
		billing:         p.Billing,
		clientRepo:      p.ClientRepo,
		installmentRepo: p.InstallmentRepo,
	}
}

// GetMetrics recomputes the dashboard from a fresh snapshot. Load failures are
// returned as errors; an empty ledger yields zero figures.
func (s *Service) GetMetrics(ctx context.Context, req domain.GetMetricsRequest) (domain.DashboardMetrics, error) {
	today := s.calendar.Today(s.clock)

	start, end, err := resolvePeriod(req, today)
	if err != nil {
		return domain.DashboardMetrics{}, err
	}

	clients, err := s.clientRepo.ListSnapshots(ctx, s.db)
	if err != nil {
		return domain.DashboardMetrics{}, fmt.Errorf("load client snapshots: %w", err)
	}
	installments, err := s.installmentRepo.ListAll(ctx, s.db)
	if err != nil {
		return domain.DashboardMetrics{}, fmt.Errorf("load installments: %w", err)
	}

	metrics := domain.Aggregate(installments, clients, start, end, today, domain.Options{
		Calendar:    s.calendar,
		TrendMonths: s.billing.Get().Dashboard.TrendMonths,
	})

	s.log.Debug("dashboard metrics computed",
		zap.Int("clients", len(clients)),
		zap.Int("installments", len(installments)),
		zap.String("period_start", start.Format(clock.DateLayout)),
		zap.String("period_end", end.Format(clock.DateLayout)),
	)
	return metrics, nil
}

func resolvePeriod(req domain.GetMetricsRequest, today time.Time) (time.Time, time.Time, error) {
	rawStart := strings.TrimSpace(req.Start)
	rawEnd := strings.TrimSpace(req.End)

	if rawStart == "" && rawEnd == "" {
		return clock.MonthStart(today), clock.MonthEnd(today), nil
	}

	var start, end time.Time
	var err error
	if rawStart == "" {
		if end, err = clock.ParseDate(rawEnd); err != nil {
			return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
		}
		return clock.MonthStart(end), end, nil
	}
	if start, err = clock.ParseDate(rawStart); err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	if rawEnd == "" {
		return start, clock.MonthEnd(start), nil
	}
	if end, err = clock.ParseDate(rawEnd); err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	return start, end, nil
}
