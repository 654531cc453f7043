package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	"github.com/smallbiznis/mensalidade/internal/clock"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
	"github.com/smallbiznis/mensalidade/internal/observability/metrics"
	plandomain "github.com/smallbiznis/mensalidade/internal/plan/domain"
	subscriptiondomain "github.com/smallbiznis/mensalidade/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	ClientRepo      clientdomain.Repository
	PlanRepo        plandomain.Repository
	InstallmentRepo installmentdomain.Repository
	Metrics         *metrics.Metrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	clientRepo      clientdomain.Repository
	planRepo        plandomain.Repository
	installmentRepo installmentdomain.Repository
	metrics         *metrics.Metrics
}

func New(p Params) subscriptiondomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("subscription.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		clientRepo:      p.ClientRepo,
		planRepo:        p.PlanRepo,
		installmentRepo: p.InstallmentRepo,
		metrics:         p.Metrics,
	}
}

// Activate flags the client subscribed and schedules its first installment.
// Both writes commit together or not at all.
func (s *Service) Activate(ctx context.Context, req subscriptiondomain.ActivateRequest) (subscriptiondomain.Activation, error) {
	clientID, err := parseID(req.ClientID, subscriptiondomain.ErrInvalidClient)
	if err != nil {
		return subscriptiondomain.Activation{}, err
	}
	planID, err := parseID(req.PlanID, subscriptiondomain.ErrInvalidPlan)
	if err != nil {
		return subscriptiondomain.Activation{}, err
	}
	startDate, err := clock.ParseDate(req.StartDate)
	if err != nil {
		return subscriptiondomain.Activation{}, subscriptiondomain.ErrInvalidStartDate
	}

	var (
		activation subscriptiondomain.Activation
		planName   string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := s.clientRepo.FindByID(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if client == nil || client.Deleted {
			return subscriptiondomain.ErrClientNotFound
		}

		plan, err := s.planRepo.FindByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if plan == nil {
			return subscriptiondomain.ErrPlanNotFound
		}
		planName = plan.Name

		updated, inst, err := subscriptiondomain.ActivateSubscription(*client, *plan, startDate, s.genID.Generate(), s.clock.Now())
		if err != nil {
			return err
		}
		if err := installmentdomain.Validate(inst); err != nil {
			return err
		}

		affected, err := s.clientRepo.UpdateSubscription(ctx, tx, updated.ID, true, updated.PlanID, updated.UpdatedAt)
		if err != nil {
			return err
		}
		if affected == 0 {
			return subscriptiondomain.ErrClientNotFound
		}
		if err := s.installmentRepo.Insert(ctx, tx, &inst); err != nil {
			return err
		}

		activation = subscriptiondomain.Activation{Client: updated, Installment: inst}
		return nil
	})
	if err != nil {
		return subscriptiondomain.Activation{}, err
	}

	s.metrics.RecordSubscriptionActivated(ctx, planName)
	s.log.Info("subscription activated",
		zap.String("client_id", clientID.String()),
		zap.String("plan_id", planID.String()),
		zap.String("installment_id", activation.Installment.ID.String()),
		zap.String("due_date", activation.Installment.DueDate.Format(clock.DateLayout)),
	)
	return activation, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (clientdomain.Client, error) {
	clientID, err := parseID(id, subscriptiondomain.ErrInvalidClient)
	if err != nil {
		return clientdomain.Client{}, err
	}

	var client clientdomain.Client
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.clientRepo.FindByID(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if item == nil || item.Deleted {
			return subscriptiondomain.ErrClientNotFound
		}
		if !item.SubscriptionActive {
			return subscriptiondomain.ErrSubscriptionInactive
		}

		now := s.clock.Now()
		if _, err := s.clientRepo.UpdateSubscription(ctx, tx, item.ID, false, item.PlanID, now); err != nil {
			return err
		}
		item.SubscriptionActive = false
		item.UpdatedAt = now
		client = *item
		return nil
	})
	if err != nil {
		return clientdomain.Client{}, err
	}

	s.metrics.RecordSubscriptionCancelled(ctx)
	s.log.Info("subscription cancelled", zap.String("client_id", clientID.String()))
	return client, nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidErr
	}
	return snowflake.ID(id), nil
}
