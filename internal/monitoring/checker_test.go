package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/model"
)

func TestChecker_CheckSendsAlerts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := &stubRuns{runs: []model.Run{
		run(model.RunStatusFailed, time.Hour, &model.RunStats{Failed: 2}),
		run(model.RunStatusFailed, 2*time.Hour, &model.RunStats{Failed: 2}),
		run(model.RunStatusFailed, 3*time.Hour, &model.RunStats{Failed: 2}),
	}}
	cfg := testMonitoringConfig(srv.URL)
	c := NewChecker(newTestCollector(st), NewAlerter(cfg), cfg)

	sent := c.check(context.Background(), zap.NewNop())

	// failure rate + nothing saved
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), hits.Load())
}

func TestChecker_CollectErrorSendsNothing(t *testing.T) {
	cfg := testMonitoringConfig("http://127.0.0.1:1")
	c := NewChecker(newTestCollector(&stubRuns{err: errors.New("boom")}), NewAlerter(cfg), cfg)

	assert.Zero(t, c.check(context.Background(), zap.NewNop()))
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := testMonitoringConfig("")
	cfg.CheckIntervalSecs = 1
	c := NewChecker(newTestCollector(&stubRuns{}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop")
	}
}
