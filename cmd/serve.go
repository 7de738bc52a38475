package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/api"
)

var (
	servePort     int
	serveSchedule bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the article read API",
	Long:  "Serves stored articles and run history as JSON. POST /ingest triggers a run; --schedule also runs ingestion periodically in-process.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := newServer(ctx, env, port)
		startMonitoring(ctx, env.Store)

		done := make(chan struct{})
		if serveSchedule {
			go func() {
				defer close(done)
				newScheduler(env.Pipeline, 0).Start(ctx)
			}()
		} else {
			close(done)
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Bool("schedule", serveSchedule))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			stop()
			<-done
			return eris.Wrap(err, "server listen")
		}

		<-done
		return nil
	},
}

// newServer builds the HTTP server. Runs triggered through the API are
// bound to ctx, not to the request.
func newServer(ctx context.Context, env *pipelineEnv, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewRouter(ctx, env.Store, env.Pipeline, cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", false, "also run ingestion on schedule.interval")
	rootCmd.AddCommand(serveCmd)
}
