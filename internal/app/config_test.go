package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL: "postgres://localhost/kart",
		Session: SessionConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
		RateLimit: RateLimitConfig{Max: 100, Window: time.Minute},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "Valid", mutate: func(*Config) {}},
		{name: "NoDatabase", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL"},
		{name: "ZeroIdle", mutate: func(c *Config) { c.Session.IdleTimeout = 0 }, wantErr: "idle timeout"},
		{name: "NegativeSweep", mutate: func(c *Config) { c.Session.SweepInterval = -time.Second }, wantErr: "sweep interval"},
		{name: "ZeroRateMax", mutate: func(c *Config) { c.RateLimit.Max = 0 }, wantErr: "rate limit"},
		{name: "ZeroRateWindow", mutate: func(c *Config) { c.RateLimit.Window = 0 }, wantErr: "rate limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
