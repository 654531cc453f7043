package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/mensalidade/internal/config"
)

const (
	JobCollectionDispatch = "collection_dispatch"
	JobResetSentToday     = "reset_sent_today"
	JobMessagingPing      = "messaging_ping"
)

// Config controls cron schedules and per-job timeouts.
type Config struct {
	DispatchSchedule string
	ResetSchedule    string
	PingSchedule     string
	JobTimeout       time.Duration
	// EnabledJobs restricts which jobs run; empty means all of them.
	EnabledJobs []string
}

func DefaultConfig() Config {
	defaults := config.DefaultBillingConfig().Collection
	return Config{
		DispatchSchedule: defaults.DispatchSchedule,
		ResetSchedule:    defaults.ResetSchedule,
		PingSchedule:     "*/5 * * * *",
		JobTimeout:       5 * time.Minute,
	}
}

// ProvideConfig reads schedules from the billing rules loaded at startup.
func ProvideConfig(cfg config.Config, billing *config.BillingConfigHolder) Config {
	collection := billing.Get().Collection
	return Config{
		DispatchSchedule: collection.DispatchSchedule,
		ResetSchedule:    collection.ResetSchedule,
		EnabledJobs:      cfg.SchedulerJobs,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.DispatchSchedule) == "" {
		c.DispatchSchedule = defaults.DispatchSchedule
	}
	if strings.TrimSpace(c.ResetSchedule) == "" {
		c.ResetSchedule = defaults.ResetSchedule
	}
	if strings.TrimSpace(c.PingSchedule) == "" {
		c.PingSchedule = defaults.PingSchedule
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
