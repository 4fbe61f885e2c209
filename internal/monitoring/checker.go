package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Checker runs periodic alert checks in the background alongside a scan
// session.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       Config
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg Config) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	lookback := c.cfg.LookbackHours
	if lookback <= 0 {
		lookback = 24
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", lookback),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log, lookback)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger, lookback int) {
	snap, err := c.collector.Collect(ctx, lookback)
	if err != nil {
		log.Error("failed to collect metrics", zap.Error(err))
		return
	}

	critical, err := c.alerter.DispatchCritical(ctx, snap.CollectedAt.Add(-time.Duration(lookback)*time.Hour), 50)
	if err != nil {
		log.Error("critical alert dispatch failed", zap.Error(err))
	}

	alerts := c.alerter.Evaluate(snap)
	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("alert check complete",
		zap.Int("critical_sent", critical),
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
}
