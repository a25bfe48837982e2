package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper deactivates every expired QR token.
type Sweeper interface {
	SweepAll(ctx context.Context) (int64, error)
}

// SweepConfig controls the periodic token sweep.
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
}

// StartTokenSweepJob flips expired tokens to inactive every interval until
// ctx is cancelled. Redemption already rejects expired tokens, so the job
// only keeps listings tidy.
func StartTokenSweepJob(ctx context.Context, cfg SweepConfig, sweeper Sweeper, lgr zerolog.Logger) {
	if !cfg.Enabled {
		lgr.Info().Msg("QR token sweep job disabled")
		return
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				n, err := sweeper.SweepAll(tickCtx)
				cancel()
				if err != nil {
					lgr.Error().Err(err).Msg("QR token sweep failed")
					continue
				}
				if n > 0 {
					lgr.Info().Int64("deactivated", n).Msg("QR token sweep deactivated expired tokens")
				}
			}
		}
	}()
}
