package whatsapp

import (
	"context"
	"time"

	collectiondomain "github.com/smallbiznis/mensalidade/internal/collection/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const startupPingTimeout = 10 * time.Second

var Module = fx.Module("whatsapp.provider",
	fx.Provide(NewStatusTracker),
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) collectiondomain.Gateway { return c }),
	fx.Invoke(pingOnStart),
)

func pingOnStart(lc fx.Lifecycle, c *Client, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
				defer cancel()
				if err := c.Ping(ctx); err != nil {
					log.Warn("whatsapp ping failed", zap.Error(err))
				}
			}()
			return nil
		},
	})
}
