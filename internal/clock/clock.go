package clock

import (
	"time"

	"github.com/smallbiznis/mensalidade/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
	fx.Provide(func(cfg config.Config) (Calendar, error) {
		return LoadCalendar(cfg.BillingTimezone)
	}),
)

// Clock abstracts wall time so billing code can be driven by tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
