package service

import (
	"context"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/installment/domain"
	"github.com/smallbiznis/mensalidade/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Calendar   clock.Calendar
	Repo       domain.Repository
	ClientRepo clientdomain.Repository
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	calendar   clock.Calendar
	repo       domain.Repository
	clientRepo clientdomain.Repository
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("installment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		calendar:   p.Calendar,
		repo:       p.Repo,
		clientRepo: p.ClientRepo,
		metrics:    p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInstallmentRequest) (domain.Installment, error) {
	clientID, err := parseID(req.ClientID, domain.ErrInvalidClient)
	if err != nil {
		return domain.Installment{}, err
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return domain.Installment{}, domain.ErrInvalidAmount
	}

	if strings.TrimSpace(req.DueDate) == "" {
		return domain.Installment{}, domain.ErrMissingDueDate
	}
	dueDate, err := clock.ParseDate(req.DueDate)
	if err != nil {
		return domain.Installment{}, domain.ErrMissingDueDate
	}

	if !clientdomain.ValidMetadata(req.Metadata) {
		return domain.Installment{}, domain.ErrInvalidMetadata
	}

	client, err := s.clientRepo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return domain.Installment{}, err
	}
	if client == nil || client.Deleted {
		return domain.Installment{}, domain.ErrClientNotFound
	}

	metadata := datatypes.JSONMap{}
	maps.Copy(metadata, req.Metadata)

	now := s.clock.Now()
	inst := domain.Installment{
		ID:             s.genID.Generate(),
		ClientID:       clientID,
		Amount:         amount.Round(2),
		DueDate:        dueDate,
		Status:         domain.StatusPending,
		IsRecurring:    req.IsRecurring,
		SequenceNumber: req.SequenceNumber,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := domain.Validate(inst); err != nil {
		return domain.Installment{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &inst); err != nil {
		return domain.Installment{}, err
	}

	s.log.Info("installment created",
		zap.String("installment_id", inst.ID.String()),
		zap.String("client_id", clientID.String()),
		zap.Bool("recurring", inst.IsRecurring),
	)
	return inst, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.View, error) {
	installmentID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.View{}, err
	}
	inst, err := s.repo.FindByID(ctx, s.db, installmentID)
	if err != nil {
		return domain.View{}, err
	}
	if inst == nil {
		return domain.View{}, domain.ErrNotFound
	}
	return domain.NewView(*inst, s.calendar.Today(s.clock)), nil
}

func (s *Service) ListByClient(ctx context.Context, clientID string) ([]domain.View, error) {
	id, err := parseID(clientID, domain.ErrInvalidClient)
	if err != nil {
		return nil, err
	}

	client, err := s.clientRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrClientNotFound
	}

	items, err := s.repo.ListByClient(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	today := s.calendar.Today(s.clock)
	views := make([]domain.View, 0, len(items))
	for _, item := range items {
		views = append(views, domain.NewView(item, today))
	}
	return views, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Installment, error) {
	return s.repo.ListAll(ctx, s.db)
}

func (s *Service) SetStatus(ctx context.Context, req domain.SetStatusRequest) (domain.View, error) {
	status := domain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	switch status {
	case domain.StatusPending, domain.StatusPaid, domain.StatusCancelled:
	default:
		return domain.View{}, domain.ErrInvalidStatus
	}
	return s.transition(ctx, req.ID, status, s.clock.Now())
}

func (s *Service) MarkPaid(ctx context.Context, id string, paidAt time.Time) (domain.View, error) {
	if paidAt.IsZero() {
		paidAt = s.clock.Now()
	}
	return s.transition(ctx, id, domain.StatusPaid, paidAt.UTC())
}

func (s *Service) transition(ctx context.Context, id string, status domain.Status, at time.Time) (domain.View, error) {
	installmentID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.View{}, err
	}

	var (
		updated domain.Installment
		changed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, installmentID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if current.Status == status {
			updated = *current
			return nil
		}
		if _, err := s.repo.SetStatus(ctx, tx, installmentID, status, at); err != nil {
			return err
		}
		updated = *current
		updated.Status = status
		updated.UpdatedAt = at
		changed = true
		return nil
	})
	if err != nil {
		return domain.View{}, err
	}

	if changed {
		s.metrics.RecordInstallmentTransition(ctx, string(status))
		s.log.Info("installment status changed",
			zap.String("installment_id", installmentID.String()),
			zap.String("status", string(status)),
		)
	}
	return domain.NewView(updated, s.calendar.Today(s.clock)), nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, invalid
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return snowflake.ID(id), nil
}
