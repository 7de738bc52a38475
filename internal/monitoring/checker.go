package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/config"
)

// Checker evaluates recent runs on a fixed interval.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Run checks once immediately and then every check_interval_secs until ctx
// is done.
func (c *Checker) Run(ctx context.Context) {
	every := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if every <= 0 {
		every = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring"))
	log.Info("monitoring: watching ingest runs",
		zap.Duration("every", every),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	c.check(ctx, log)

	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: stopped")
			return
		case <-tick.C:
			c.check(ctx, log)
		}
	}
}

// check collects one snapshot and sends whatever alerts it triggers. It
// returns the number of alerts sent.
func (c *Checker) check(ctx context.Context, log *zap.Logger) int {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("monitoring: collect failed", zap.Error(err))
		}
		return 0
	}

	alerts := c.alerter.Evaluate(snap)
	log.Debug("monitoring: runs checked",
		zap.Int("runs", snap.RunsTotal),
		zap.Float64("fail_rate", snap.FailRate),
		zap.Int("alerts", len(alerts)),
	)
	if len(alerts) == 0 {
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	if sent < len(alerts) {
		log.Warn("monitoring: some alerts not delivered",
			zap.Int("triggered", len(alerts)),
			zap.Int("sent", sent),
		)
	}
	return sent
}
