package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/pipeline"
)

var scheduleInterval time.Duration

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run ingestion now and then periodically until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		startMonitoring(ctx, env.Store)
		newScheduler(env.Pipeline, scheduleInterval).Start(ctx)
		return nil
	},
}

// newScheduler builds the periodic runner. A zero override uses
// schedule.interval.
func newScheduler(r pipeline.Runner, override time.Duration) *pipeline.Scheduler {
	interval := override
	if interval <= 0 {
		interval = cfg.Schedule.Interval
	}
	s := pipeline.NewScheduler(r, interval)
	s.OnRun = logRunSummary
	return s
}

func logRunSummary(stats *model.RunStats) {
	zap.L().Info("scheduled run finished",
		zap.String("run_id", stats.RunID),
		zap.Int("saved", stats.Saved),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Bool("timed_out", stats.TimedOut),
	)
}

func init() {
	scheduleCmd.Flags().DurationVar(&scheduleInterval, "interval", 0, "run interval (default from config)")
	rootCmd.AddCommand(scheduleCmd)
}
