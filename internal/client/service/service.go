package service

import (
	"context"
	"maps"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mensalidade/internal/client/domain"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	phone := domain.NormalizePhone(req.Phone)
	if len(phone) < 10 || len(phone) > 15 {
		return domain.Client{}, domain.ErrInvalidPhone
	}

	if !domain.ValidMetadata(req.Metadata) {
		return domain.Client{}, domain.ErrInvalidMetadata
	}

	metadata := datatypes.JSONMap{}
	maps.Copy(metadata, req.Metadata)

	now := s.clock.Now()
	client := domain.Client{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     phone,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if doc := strings.TrimSpace(req.TaxDocument); doc != "" {
		client.TaxDocument = &doc
	}
	if strings.TrimSpace(req.BirthDate) != "" {
		birthDate, err := clock.ParseDate(req.BirthDate)
		if err != nil {
			return domain.Client{}, domain.ErrInvalidBirthDate
		}
		client.BirthDate = &birthDate
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Client{}, domain.ErrDuplicatePhone
		}
		return domain.Client{}, err
	}

	s.log.Info("client created", zap.String("client_id", client.ID.String()))
	return client, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Client, error) {
	clientID, err := s.parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil || item.Deleted {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) ([]domain.Client, error) {
	items, err := s.repo.List(ctx, s.db, domain.ListClientFilter{
		Name:               strings.ToLower(strings.TrimSpace(req.Name)),
		SubscriptionActive: req.SubscriptionActive,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Client{}
	}
	return items, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	clientID, err := s.parseID(id)
	if err != nil {
		return err
	}

	affected, err := s.repo.SoftDelete(ctx, s.db, clientID, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.log.Info("client deleted", zap.String("client_id", clientID.String()))
	return nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, domain.ErrInvalidID
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return snowflake.ID(id), nil
}
