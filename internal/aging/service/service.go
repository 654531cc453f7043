package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mensalidade/internal/aging/domain"
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
		log:             p.Log.Named("aging.service"),
		clock:           p.Clock,
		calendar:        p.Calendar,
		billing:         p.Billing,
		clientRepo:      p.ClientRepo,
		installmentRepo: p.InstallmentRepo,
	}
}

// Classify loads every non-deleted client and classifies it as of today.
func (s *Service) Classify(ctx context.Context) (domain.Result, error) {
	clients, err := s.clientRepo.List(ctx, s.db, clientdomain.ListClientFilter{})
	if err != nil {
		return domain.Result{}, fmt.Errorf("load clients: %w", err)
	}

	ids := make([]snowflake.ID, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.ID)
	}

	var installments []installmentdomain.Installment
	if len(ids) > 0 {
		installments, err = s.installmentRepo.ListByClients(ctx, s.db, ids)
		if err != nil {
			return domain.Result{}, fmt.Errorf("load installments: %w", err)
		}
	}

	aging := s.billing.Get().Aging
	result := domain.ClassifyClients(installments, s.calendar.Today(s.clock), domain.Thresholds{
		RecentMaxDays:  aging.RecentMaxDays,
		BlockedMaxDays: aging.BlockedMaxDays,
	})

	for _, id := range ids {
		if _, ok := result.Clients[id]; ok {
			continue
		}
		result.Clients[id] = domain.Classification{
			ClientID: id,
			Tier:     domain.TierNoQualifyingInstallment,
			Amount:   decimal.Zero,
		}
	}

	s.log.Debug("clients classified",
		zap.Int("clients", len(result.Clients)),
		zap.Int("installments", len(installments)),
	)
	return result, nil
}
