package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/store"
)

type stubRuns struct {
	runs   []model.Run
	err    error
	filter store.RunFilter
}

func (s *stubRuns) ListRuns(_ context.Context, f store.RunFilter) ([]model.Run, error) {
	s.filter = f
	return s.runs, s.err
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestCollector(st RunLister) *Collector {
	c := NewCollector(st)
	c.now = func() time.Time { return fixedNow }
	return c
}

func run(status model.RunStatus, ago time.Duration, stats *model.RunStats) model.Run {
	return model.Run{ID: "r", Status: status, StartedAt: fixedNow.Add(-ago), Stats: stats}
}

func TestCollect_SumsRunsInWindow(t *testing.T) {
	st := &stubRuns{runs: []model.Run{
		run(model.RunStatusComplete, time.Hour, &model.RunStats{
			Saved: 4, Failed: 1, CostUSD: 0.02,
			Usage: model.TokenUsage{PromptTokens: 1000, CompletionTokens: 200},
		}),
		run(model.RunStatusFailed, 2*time.Hour, &model.RunStats{Failed: 3, TimedOut: true}),
		run(model.RunStatusRunning, 5*time.Minute, nil),
		// Outside the window.
		run(model.RunStatusFailed, 30*time.Hour, &model.RunStats{Failed: 9}),
	}}

	snap, err := newTestCollector(st).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, maxRuns, st.filter.Limit)
	assert.Equal(t, 3, snap.RunsTotal)
	assert.Equal(t, 1, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsRunning)
	assert.Equal(t, 1, snap.RunsTimedOut)
	assert.InDelta(t, 0.5, snap.FailRate, 1e-9)
	assert.Equal(t, 4, snap.ArticlesSaved)
	assert.Equal(t, 4, snap.ArticlesFailed)
	assert.Equal(t, int64(1000), snap.PromptTokens)
	assert.Equal(t, int64(200), snap.CompletionTokens)
	assert.InDelta(t, 0.02, snap.CostUSD, 1e-9)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, fixedNow, snap.CollectedAt)
}

func TestCollect_NoFinishedRuns(t *testing.T) {
	st := &stubRuns{runs: []model.Run{run(model.RunStatusRunning, time.Minute, nil)}}

	snap, err := newTestCollector(st).Collect(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.RunsTotal)
	assert.Zero(t, snap.FailRate)
}

func TestCollect_StoreError(t *testing.T) {
	st := &stubRuns{err: errors.New("db down")}

	_, err := newTestCollector(st).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list runs")
}
