package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/newsdesk/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Sources    []model.Source   `yaml:"sources" mapstructure:"sources"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LLMConfig selects and tunes the language-model provider used for
// classification fallback and content transformation.
type LLMConfig struct {
	Provider                string `yaml:"provider" mapstructure:"provider"`
	APIKey                  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL                 string `yaml:"base_url" mapstructure:"base_url"`
	Model                   string `yaml:"model" mapstructure:"model"`
	TimeoutSecs             int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ClassifyTimeoutSecs     int    `yaml:"classify_timeout_secs" mapstructure:"classify_timeout_secs"`
	MaxAttempts             int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	CircuitFailureThreshold int    `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int    `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// Configured reports whether a credential is present.
func (c LLMConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// FetchConfig configures outbound page requests.
type FetchConfig struct {
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	AcceptLanguage string  `yaml:"accept_language" mapstructure:"accept_language"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyBytes   int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RatePerHost    float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
}

// Timeout returns the per-request timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// PipelineConfig bounds a single ingestion run.
type PipelineConfig struct {
	MaxLinksPerSource int `yaml:"max_links_per_source" mapstructure:"max_links_per_source"`
	Workers           int `yaml:"workers" mapstructure:"workers"`
	RunTimeoutMins    int `yaml:"run_timeout_mins" mapstructure:"run_timeout_mins"`
	LinkDelayMs       int `yaml:"link_delay_ms" mapstructure:"link_delay_ms"`
	MaxTitleChars     int `yaml:"max_title_chars" mapstructure:"max_title_chars"`
	MaxContentChars   int `yaml:"max_content_chars" mapstructure:"max_content_chars"`
	MaxURLChars       int `yaml:"max_url_chars" mapstructure:"max_url_chars"`
}

// ClassifyConfig configures the keyword classifier.
type ClassifyConfig struct {
	KeywordsFile string `yaml:"keywords_file" mapstructure:"keywords_file"`
}

// ScheduleConfig configures the periodic runner.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ServerConfig configures the read API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MonitoringConfig configures run-health alerts. Alerts are only sent when
// WebhookURL is set.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// Enabled reports whether alerts have somewhere to go.
func (c MonitoringConfig) Enabled() bool {
	return c.WebhookURL != ""
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, the config file and the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NEWSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("llm.provider", "deepseek")
	v.SetDefault("llm.base_url", "https://api.deepseek.com")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.classify_timeout_secs", 10)
	v.SetDefault("llm.max_attempts", 2)
	v.SetDefault("llm.circuit_failure_threshold", 5)
	v.SetDefault("llm.circuit_reset_secs", 60)
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.accept_language", "en-US,en;q=0.9,pl;q=0.8")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_body_bytes", 5<<20)
	v.SetDefault("fetch.rate_per_host", 2.0)
	v.SetDefault("fetch.burst", 2)
	v.SetDefault("pipeline.max_links_per_source", 5)
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.run_timeout_mins", 60)
	v.SetDefault("pipeline.link_delay_ms", 0)
	v.SetDefault("pipeline.max_title_chars", 10000)
	v.SetDefault("pipeline.max_content_chars", 100000)
	v.SetDefault("pipeline.max_url_chars", 1000)
	v.SetDefault("classify.keywords_file", "")
	v.SetDefault("schedule.interval", "6h")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.cost_threshold_usd", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.DatabaseURL == "" {
		cfg.Store.DatabaseURL = "newsdesk.db"
	}

	return &cfg, nil
}

// Validate checks the configuration required by the given command mode:
// "ingest" (ingest, schedule), "serve", "migrate" or "read" (articles,
// runs). Store problems and malformed sources are fatal; a missing LLM
// credential only produces a warning. Workers below 1 are clamped.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "ingest", "serve", "migrate", "read":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for driver postgres")
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be > 0 and <= 65535")
	}

	if mode == "ingest" || mode == "serve" {
		errs = append(errs, c.validateSources()...)

		if c.Pipeline.Workers < 1 {
			c.Pipeline.Workers = 1
		}
		if c.Pipeline.MaxLinksPerSource < 1 {
			errs = append(errs, "pipeline.max_links_per_source must be >= 1")
		}

		switch c.LLM.Provider {
		case "deepseek", "openai", "anthropic", "gemini":
		default:
			errs = append(errs, "llm.provider must be one of deepseek, openai, anthropic, gemini")
		}
		if !c.LLM.Configured() {
			zap.L().Warn("config: llm.api_key is not set, classification falls back to keywords and articles cannot be transformed")
		}
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSources() []string {
	var errs []string
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		label := fmt.Sprintf("sources[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, label+".name is required")
		} else if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("%s.name %q is duplicated", label, s.Name))
		}
		seen[s.Name] = true

		u, err := url.Parse(s.ListingURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, label+".listing_url must be an absolute http(s) URL")
		}

		switch s.EffectiveKind() {
		case model.SourceKindHTML:
			if strings.TrimSpace(s.LinkSelector) == "" {
				errs = append(errs, label+".link_selector is required for html sources")
			}
		case model.SourceKindRSS:
		default:
			errs = append(errs, label+".kind must be html or rss")
		}

		if s.AbsoluteLinks && s.BaseURL != "" {
			if b, err := url.Parse(s.BaseURL); err != nil || b.Host == "" {
				errs = append(errs, label+".base_url must be an absolute URL")
			}
		}
	}
	return errs
}

// EnabledSources returns the configured sources that are not disabled.
func (c *Config) EnabledSources() []model.Source {
	out := make([]model.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
