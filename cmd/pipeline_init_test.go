package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/newsdesk/internal/config"
	"github.com/sells-group/newsdesk/internal/model"
)

// useConfig installs a SQLite-backed config for the duration of the test.
func useConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "newsdesk.db")},
		LLM:   config.LLMConfig{Provider: "deepseek", ClassifyTimeoutSecs: 1},
		Fetch: config.FetchConfig{TimeoutSecs: 5},
		Pipeline: config.PipelineConfig{
			MaxLinksPerSource: 5,
			Workers:           1,
		},
		Schedule: config.ScheduleConfig{Interval: time.Hour},
		Server:   config.ServerConfig{Port: 8080},
		Sources:  config.DefaultSources(),
	}
	return cfg
}

func TestInitPipeline_SQLiteWithoutModel(t *testing.T) {
	useConfig(t)

	env, err := initPipeline(context.Background(), "ingest")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Pipeline)
	assert.False(t, env.Pipeline.Running())
}

func TestInitPipeline_InvalidConfig(t *testing.T) {
	c := useConfig(t)
	c.Store = config.StoreConfig{Driver: "postgres"}

	_, err := initPipeline(context.Background(), "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")
}

func TestInitPipeline_UnknownProvider(t *testing.T) {
	c := useConfig(t)
	c.LLM.Provider = "mystery"
	c.LLM.APIKey = "sk-test"

	_, err := initPipeline(context.Background(), "ingest")
	require.Error(t, err)
}

func TestLoadTaxonomy(t *testing.T) {
	c := useConfig(t)

	tax, err := loadTaxonomy()
	require.NoError(t, err)
	assert.NotEmpty(t, tax[model.CategoryGame])

	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Tech:\n  - Quantum\n"), 0o600))
	c.Classify.KeywordsFile = path

	tax, err = loadTaxonomy()
	require.NoError(t, err)
	assert.Equal(t, []string{"quantum"}, tax[model.CategoryTech])
	assert.Empty(t, tax[model.CategoryGame])

	c.Classify.KeywordsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = loadTaxonomy()
	assert.Error(t, err)
}

func TestNewServer_ServesReadAPI(t *testing.T) {
	useConfig(t)
	env, err := initPipeline(context.Background(), "serve")
	require.NoError(t, err)
	defer env.Close()

	srv := newServer(context.Background(), env, 9090)
	assert.Equal(t, ":9090", srv.Addr)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/articles", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestNewScheduler_UsesConfiguredInterval(t *testing.T) {
	useConfig(t)
	s := newScheduler(nil, 0)
	assert.NotNil(t, s.OnRun)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"saved": 2}))
	assert.Equal(t, "{\n  \"saved\": 2\n}\n", buf.String())
}

func TestStartMonitoring_DisabledAndEnabled(t *testing.T) {
	c := useConfig(t)
	env, err := initPipeline(context.Background(), "ingest")
	require.NoError(t, err)
	defer env.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// No webhook: nothing starts.
	startMonitoring(ctx, env.Store)

	c.Monitoring = config.MonitoringConfig{WebhookURL: "http://127.0.0.1:1/hook", CheckIntervalSecs: 3600, LookbackWindowHours: 24}
	assert.NotPanics(t, func() { startMonitoring(ctx, env.Store) })
}
