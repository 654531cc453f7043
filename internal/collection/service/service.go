package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/collection/domain"
	"github.com/smallbiznis/mensalidade/internal/config"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
	messagelogdomain "github.com/smallbiznis/mensalidade/internal/messagelog/domain"
	obslogger "github.com/smallbiznis/mensalidade/internal/observability/logger"
	"github.com/smallbiznis/mensalidade/internal/observability/metrics"
	"github.com/smallbiznis/mensalidade/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dispatchLockKey = "collection:dispatch"
	dispatchLockTTL = 10 * time.Minute
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	Calendar        clock.Calendar
	Billing         *config.BillingConfigHolder
	InstallmentRepo installmentdomain.Repository
	ClientRepo      clientdomain.Repository
	MessageLogs     messagelogdomain.Service
	Gateway         domain.Gateway
	Locker          *ratelimit.Locker          `optional:"true"`
	Throttle        *ratelimit.SendThrottle    `optional:"true"`
	Collection      *metrics.CollectionMetrics `optional:"true"`
	Metrics         *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	calendar    clock.Calendar
	billing     *config.BillingConfigHolder
	repo        installmentdomain.Repository
	clientRepo  clientdomain.Repository
	messageLogs messagelogdomain.Service
	gateway     domain.Gateway
	locker      *ratelimit.Locker
	throttle    *ratelimit.SendThrottle
	collection  *metrics.CollectionMetrics
	metrics     *metrics.Metrics

	// dispatching keeps runs in this process sequential whether or not redis is configured.
	dispatching sync.Mutex
}

type deliveryOutcome int

const (
	deliverySent deliveryOutcome = iota
	deliveryFailed
	deliveryClaimLost
)

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("collection.service"),
		clock:       p.Clock,
		calendar:    p.Calendar,
		billing:     p.Billing,
		repo:        p.InstallmentRepo,
		clientRepo:  p.ClientRepo,
		messageLogs: p.MessageLogs,
		gateway:     p.Gateway,
		locker:      p.Locker,
		throttle:    p.Throttle,
		collection:  p.Collection,
		metrics:     p.Metrics,
	}
}

// Queue evaluates the reminder queue as of today. Installments of deleted
// clients never reach the queue.
func (s *Service) Queue(ctx context.Context) ([]domain.QueueEntry, error) {
	today := s.calendar.Today(s.clock)
	cfg := s.billing.Get().Collection

	candidates, err := s.repo.ListReminderCandidates(ctx, s.db, clock.AddDays(today, cfg.LookaheadDays))
	if err != nil {
		return nil, fmt.Errorf("load reminder candidates: %w", err)
	}

	ids := make([]snowflake.ID, 0, len(candidates))
	seen := make(map[snowflake.ID]struct{}, len(candidates))
	for _, inst := range candidates {
		if _, ok := seen[inst.ClientID]; ok {
			continue
		}
		seen[inst.ClientID] = struct{}{}
		ids = append(ids, inst.ClientID)
	}

	contacts := make(map[snowflake.ID]clientdomain.Contact, len(ids))
	if len(ids) > 0 {
		rows, err := s.clientRepo.ListContacts(ctx, s.db, ids)
		if err != nil {
			return nil, fmt.Errorf("load contacts: %w", err)
		}
		for _, c := range rows {
			if c.Phone != "" {
				contacts[c.ID] = c
			}
		}
	}

	reachable := candidates[:0]
	for _, inst := range candidates {
		if _, ok := contacts[inst.ClientID]; ok {
			reachable = append(reachable, inst)
		}
	}

	selected := domain.SelectEligible(reachable, today, cfg.LookaheadDays, cfg.Limit)
	entries := make([]domain.QueueEntry, 0, len(selected))
	for _, inst := range selected {
		contact := contacts[inst.ClientID]
		entries = append(entries, domain.QueueEntry{
			View:       installmentdomain.NewView(inst, today),
			ClientName: contact.Name,
			Phone:      contact.Phone,
		})
	}

	s.collection.SetQueueSize(len(entries))
	return entries, nil
}

func (s *Service) MarkSent(ctx context.Context, id string) (domain.MarkSentResult, error) {
	installmentID, err := s.lookup(ctx, id)
	if err != nil {
		return domain.MarkSentResult{}, err
	}

	claimed, err := s.repo.ClaimSent(ctx, s.db, installmentID)
	if err != nil {
		return domain.MarkSentResult{}, err
	}
	return domain.MarkSentResult{Claimed: claimed}, nil
}

func (s *Service) CancelSend(ctx context.Context, id string) error {
	installmentID, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.CancelSend(ctx, s.db, installmentID); err != nil {
		return err
	}
	s.log.Info("installment send cancelled", zap.String("installment_id", installmentID.String()))
	return nil
}

func (s *Service) ResetDailyFlags(ctx context.Context) (int64, error) {
	affected, err := s.repo.ResetSentToday(ctx, s.db)
	if err != nil {
		return 0, err
	}
	obslogger.WithContext(ctx, s.log).Info("daily send flags reset", zap.Int64("installments", affected))
	return affected, nil
}

// Dispatch sends one reminder per queued installment. Each installment is
// claimed before the gateway is called, so concurrent runs never notify the
// same installment twice; a failed send gives the claim back.
func (s *Service) Dispatch(ctx context.Context) (domain.DispatchSummary, error) {
	log := obslogger.WithContext(ctx, s.log)

	if !s.dispatching.TryLock() {
		return domain.DispatchSummary{}, fmt.Errorf("%w: %w", domain.ErrDispatchInProgress, metrics.ErrLockHeld)
	}
	defer s.dispatching.Unlock()

	if s.locker.Enabled() {
		token, ok, err := s.locker.TryLock(ctx, dispatchLockKey, dispatchLockTTL)
		if err != nil {
			return domain.DispatchSummary{}, fmt.Errorf("acquire dispatch lock: %w", err)
		}
		if !ok {
			return domain.DispatchSummary{}, fmt.Errorf("%w: %w", domain.ErrDispatchInProgress, metrics.ErrLockHeld)
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), dispatchLockKey, token); err != nil {
				log.Warn("release dispatch lock failed", zap.Error(err))
			}
		}()
	}

	cfg := s.billing.Get().Collection
	templates, err := domain.ParseTemplates(cfg.UpcomingTemplate, cfg.OverdueTemplate)
	if err != nil {
		return domain.DispatchSummary{}, err
	}

	entries, err := s.Queue(ctx)
	if err != nil {
		return domain.DispatchSummary{}, err
	}

	today := s.calendar.Today(s.clock)
	summary := domain.DispatchSummary{Selected: len(entries)}
	for i, entry := range entries {
		if ctx.Err() != nil {
			summary.Skipped += len(entries) - i
			break
		}
		allowed, err := s.throttle.Allow(ctx)
		if err != nil {
			log.Warn("send throttle unavailable", zap.Error(err))
			allowed = true
		}
		if !allowed {
			summary.Skipped += len(entries) - i
			log.Info("send throttle exhausted", zap.Int("skipped", summary.Skipped))
			break
		}

		switch s.deliver(ctx, log, entry, templates, today) {
		case deliverySent:
			summary.Sent++
		case deliveryFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	log.Info("reminder dispatch finished",
		zap.Int("selected", summary.Selected),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (s *Service) deliver(ctx context.Context, log *zap.Logger, entry domain.QueueEntry, templates *domain.Templates, today time.Time) deliveryOutcome {
	installmentID := entry.ID
	fields := []zap.Field{
		zap.String("installment_id", installmentID.String()),
		zap.String("client_id", entry.ClientID.String()),
	}

	claimed, err := s.repo.ClaimSent(ctx, s.db, installmentID)
	if err != nil {
		s.collection.IncReminder(metrics.ReminderOutcomeFailed)
		s.metrics.RecordReminder(ctx, metrics.ReminderOutcomeFailed)
		log.Error("claim installment failed", append(fields, zap.Error(err))...)
		return deliveryFailed
	}
	if !claimed {
		s.collection.IncReminder(metrics.ReminderOutcomeClaimLost)
		log.Info("installment already claimed", fields...)
		return deliveryClaimLost
	}

	message, err := templates.Render(entry.ClientName, entry.Installment, today)
	if err == nil {
		err = s.gateway.Send(ctx, entry.Phone, message)
	}
	if err != nil {
		if _, releaseErr := s.repo.ReleaseSent(context.WithoutCancel(ctx), s.db, installmentID); releaseErr != nil {
			log.Error("release claim failed after undelivered reminder", append(fields, zap.Error(releaseErr))...)
		}
		s.collection.IncReminder(metrics.ReminderOutcomeFailed)
		s.metrics.RecordReminder(ctx, metrics.ReminderOutcomeFailed)
		s.record(ctx, log, entry, &installmentID, messagelogdomain.StatusError, err)
		log.Warn("reminder not delivered", append(fields, zap.Error(err))...)
		return deliveryFailed
	}

	s.collection.IncReminder(metrics.ReminderOutcomeSent)
	s.metrics.RecordReminder(ctx, metrics.ReminderOutcomeSent)
	s.record(ctx, log, entry, &installmentID, messagelogdomain.StatusSent, nil)
	return deliverySent
}

func (s *Service) record(ctx context.Context, log *zap.Logger, entry domain.QueueEntry, installmentID *snowflake.ID, status messagelogdomain.Status, cause error) {
	_, err := s.messageLogs.Record(ctx, messagelogdomain.RecordRequest{
		ClientID:      entry.ClientID,
		InstallmentID: installmentID,
		Phone:         entry.Phone,
		Status:        status,
		Err:           cause,
	})
	if err != nil {
		log.Warn("message log write failed", zap.String("installment_id", installmentID.String()), zap.Error(err))
	}
}

func (s *Service) lookup(ctx context.Context, value string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	installmentID := snowflake.ID(id)

	exists, err := s.repo.Exists(ctx, s.db, installmentID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, domain.ErrInstallmentNotFound
	}
	return installmentID, nil
}
