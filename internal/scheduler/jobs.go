package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AlertExpirer is satisfied by service.AlertService.
type AlertExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// SessionSweeper is satisfied by *geo.Throttle.
type SessionSweeper interface {
	Sweep(idle time.Duration) int
}

// ExpireAlerts deactivates alerts whose expires_at has passed.
func ExpireAlerts(alerts AlertExpirer, logger *zap.Logger) Job {
	return func(ctx context.Context) error {
		n, err := alerts.ExpireDue(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("Expired weather alerts", zap.Int("count", n))
		}
		return nil
	}
}

// SweepSessions forgets location sessions idle for longer than idle.
func SweepSessions(throttle SessionSweeper, idle time.Duration, logger *zap.Logger) Job {
	return func(context.Context) error {
		if n := throttle.Sweep(idle); n > 0 {
			logger.Debug("Swept idle location sessions", zap.Int("count", n))
		}
		return nil
	}
}
