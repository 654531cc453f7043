package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/messagelog/domain"
	"github.com/smallbiznis/mensalidade/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxErrorLength bounds the transport error stored with a failed attempt.
const maxErrorLength = 500

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
		log:   p.Log.Named("messagelog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (domain.MessageLog, error) {
	if req.ClientID == 0 {
		return domain.MessageLog{}, domain.ErrInvalidClient
	}
	if req.Status != domain.StatusSent && req.Status != domain.StatusError {
		return domain.MessageLog{}, domain.ErrInvalidStatus
	}

	entry := domain.MessageLog{
		ID:            s.genID.Generate(),
		ClientID:      req.ClientID,
		InstallmentID: req.InstallmentID,
		Phone:         req.Phone,
		Status:        req.Status,
		CreatedAt:     s.clock.Now(),
	}
	if req.Err != nil {
		detail := req.Err.Error()
		if len(detail) > maxErrorLength {
			detail = detail[:maxErrorLength]
		}
		entry.Error = &detail
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		return domain.MessageLog{}, err
	}
	return entry, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	pageSize := pagination.PageSize(req.PageSize)
	filter := domain.ListFilter{Limit: pageSize + 1}

	if clientID := strings.TrimSpace(req.ClientID); clientID != "" {
		id, err := strconv.ParseInt(clientID, 10, 64)
		if err != nil || id <= 0 {
			return domain.ListResponse{}, domain.ErrInvalidClient
		}
		sid := snowflake.ID(id)
		filter.ClientID = &sid
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		filter.BeforeCreatedAt = &createdAt
		filter.BeforeID = snowflake.ID(id)
	}

	logs, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(logs, pageSize, func(entry domain.MessageLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        entry.ID.String(),
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(logs) > pageSize {
		logs = logs[:pageSize]
	}
	if logs == nil {
		logs = []domain.MessageLog{}
	}

	return domain.ListResponse{
		Logs:          logs,
		NextPageToken: pageInfo.NextPageToken,
		HasMore:       pageInfo.HasMore,
	}, nil
}
