// Command api-server serves the session cart and checkout API.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/kart-checkout/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		lg.Info("Config loaded",
			zap.Duration("session_idle_timeout", cfg.Session.IdleTimeout),
			zap.Duration("session_sweep_interval", cfg.Session.SweepInterval),
			zap.Int("rate_limit_max", cfg.RateLimit.Max),
			zap.Duration("rate_limit_window", cfg.RateLimit.Window),
		)
		return appkg.Run(ctx, lg, m, cfg)
	})
}
