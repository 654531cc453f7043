package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePlanRequest) (domain.Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Plan{}, domain.ErrInvalidName
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || !price.IsPositive() {
		return domain.Plan{}, domain.ErrInvalidPrice
	}

	cycle := strings.ToLower(strings.TrimSpace(req.BillingCycle))
	if cycle == "" {
		cycle = domain.DefaultBillingCycle
	}

	now := s.clock.Now()
	plan := domain.Plan{
		ID:           s.genID.Generate(),
		Name:         name,
		Price:        price.Round(2),
		BillingCycle: cycle,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, &plan); err != nil {
		return domain.Plan{}, err
	}

	s.log.Info("plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("price", plan.Price.StringFixed(2)),
	)
	return plan, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Plan, error) {
	planID, err := parseID(id)
	if err != nil {
		return domain.Plan{}, err
	}
	plan, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return domain.Plan{}, err
	}
	if plan == nil {
		return domain.Plan{}, domain.ErrNotFound
	}
	return *plan, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.Plan, error) {
	plans, err := s.repo.List(ctx, s.db, activeOnly)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	return plans, nil
}

// Deactivate hides a plan from new activations; existing subscriptions keep it.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	planID, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := s.repo.SetActive(ctx, s.db, planID, false, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return snowflake.ID(id), nil
}
