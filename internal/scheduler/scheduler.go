package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/mensalidade/internal/clock"
	collectiondomain "github.com/smallbiznis/mensalidade/internal/collection/domain"
	obsmetrics "github.com/smallbiznis/mensalidade/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrInvalidConfig = errors.New("invalid_scheduler_config")
	ErrUnknownJob    = errors.New("unknown_job")
)

// Pinger checks that the messaging gateway is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Calendar   clock.Calendar
	Collection collectiondomain.Service
	Pinger     Pinger                       `optional:"true"`
	Metrics    *obsmetrics.SchedulerMetrics `optional:"true"`
	Config     Config                       `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	collection collectiondomain.Service
	pinger     Pinger
	metrics    *obsmetrics.SchedulerMetrics
	cron       *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

type job struct {
	name     string
	schedule string
	run      func(context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Collection == nil {
		return nil, ErrInvalidConfig
	}
	schedMetrics := p.Metrics
	if schedMetrics == nil {
		schedMetrics = obsmetrics.Scheduler()
	}

	log := p.Log.Named("scheduler").With(zap.String("component", "scheduler"))
	cronLog := cron.PrintfLogger(zap.NewStdLog(log))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		log:        log,
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		collection: p.Collection,
		pinger:     p.Pinger,
		metrics:    schedMetrics,
		cron: cron.New(
			cron.WithLocation(p.Calendar.Location()),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		ctx:    ctx,
		cancel: cancel,
	}

	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		if _, err := s.cron.AddFunc(j.schedule, s.scheduled(j)); err != nil {
			cancel()
			return nil, fmt.Errorf("%w: %s schedule %q: %w", ErrInvalidConfig, j.name, j.schedule, err)
		}
		log.Info("scheduler job registered", zap.String("job", j.name), zap.String("schedule", j.schedule))
	}
	return s, nil
}

func (s *Scheduler) jobs() []job {
	jobs := []job{
		{JobCollectionDispatch, s.cfg.DispatchSchedule, s.DispatchJob},
		{JobResetSentToday, s.cfg.ResetSchedule, s.ResetSentTodayJob},
	}
	if s.pinger != nil {
		jobs = append(jobs, job{JobMessagingPing, s.cfg.PingSchedule, s.MessagingPingJob})
	}
	return jobs
}

func (s *Scheduler) scheduled(j job) func() {
	return func() {
		if err := s.runJob(s.ctx, j.name, s.cfg.JobTimeout, j.run); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunJob executes one job immediately, outside its schedule.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	for _, j := range s.jobs() {
		if strings.EqualFold(j.name, name) {
			return s.runJob(ctx, j.name, s.cfg.JobTimeout, j.run)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), name) {
			return true
		}
	}
	return false
}

// DispatchJob sends the day's reminders. A run that finds the dispatch lock
// taken is recorded as skipped, not failed.
func (s *Scheduler) DispatchJob(ctx context.Context) error {
	ctx, run, _ := s.ensureJobRun(ctx, JobCollectionDispatch)

	summary, err := s.collection.Dispatch(ctx)
	if errors.Is(err, collectiondomain.ErrDispatchInProgress) {
		s.logJobSkipped(ctx, JobCollectionDispatch, obsmetrics.ClassifySchedulerJobReason(err))
		return nil
	}
	if err != nil {
		return err
	}

	run.AddProcessed(summary.Sent)
	s.metrics.AddBatchProcessed(JobCollectionDispatch, "installments", summary.Sent)
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d reminders not delivered", obsmetrics.ErrGateway, summary.Failed, summary.Selected)
	}
	return nil
}

func (s *Scheduler) ResetSentTodayJob(ctx context.Context) error {
	ctx, run, _ := s.ensureJobRun(ctx, JobResetSentToday)

	affected, err := s.collection.ResetDailyFlags(ctx)
	if err != nil {
		s.logSchedulerError(ctx, run, "reset sent flags failed", err)
		return err
	}
	run.AddProcessed(int(affected))
	s.metrics.AddBatchProcessed(JobResetSentToday, "installments", int(affected))
	return nil
}

func (s *Scheduler) MessagingPingJob(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	if err := s.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", obsmetrics.ErrGateway, err)
	}
	return nil
}
