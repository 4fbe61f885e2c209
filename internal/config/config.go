package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Ebay       EbayConfig       `yaml:"ebay" mapstructure:"ebay"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	State      StateConfig      `yaml:"state" mapstructure:"state"`
	Backfill   BackfillConfig   `yaml:"backfill" mapstructure:"backfill"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the detection store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// EbayConfig holds eBay Browse API credentials.
type EbayConfig struct {
	AppID       string `yaml:"app_id" mapstructure:"app_id"`
	CertID      string `yaml:"cert_id" mapstructure:"cert_id"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	AuthBaseURL string `yaml:"auth_base_url" mapstructure:"auth_base_url"`
	Marketplace string `yaml:"marketplace" mapstructure:"marketplace"`
}

// BrowserConfig points at the remote rendering service used by the
// headless platform scanners. An empty endpoint disables them.
type BrowserConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Token    string `yaml:"token" mapstructure:"token"`
}

// ScanConfig tunes the continuous scan session.
type ScanConfig struct {
	BatchSize          int    `yaml:"batch_size" mapstructure:"batch_size"`
	DurationSecs       int    `yaml:"duration_secs" mapstructure:"duration_secs"`
	RunTag             string `yaml:"run_tag" mapstructure:"run_tag"`
	DemoteThreshold    int    `yaml:"demote_threshold" mapstructure:"demote_threshold"`
	DemoteCooldownSecs int    `yaml:"demote_cooldown_secs" mapstructure:"demote_cooldown_secs"`
}

// Duration returns the session budget; zero means unbounded.
func (c ScanConfig) Duration() time.Duration {
	return time.Duration(c.DurationSecs) * time.Second
}

// DemoteCooldown returns the platform demotion window.
func (c ScanConfig) DemoteCooldown() time.Duration {
	return time.Duration(c.DemoteCooldownSecs) * time.Second
}

// StateConfig locates the durable state files.
type StateConfig struct {
	CursorPath     string `yaml:"cursor_path" mapstructure:"cursor_path"`
	DedupPath      string `yaml:"dedup_path" mapstructure:"dedup_path"`
	KeywordsPath   string `yaml:"keywords_path" mapstructure:"keywords_path"`
	IndicatorsPath string `yaml:"indicators_path" mapstructure:"indicators_path"`
}

// BackfillConfig enables the historical eBay backfill window.
type BackfillConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Days    int  `yaml:"days" mapstructure:"days"`
}

// MonitoringConfig configures alert thresholds and the webhook sink.
type MonitoringConfig struct {
	WebhookURL             string `yaml:"webhook_url" mapstructure:"webhook_url"`
	ReviewBacklogThreshold int    `yaml:"review_backlog_threshold" mapstructure:"review_backlog_threshold"`
	SilenceAfterHours      int    `yaml:"silence_after_hours" mapstructure:"silence_after_hours"`
	LookbackHours          int    `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	CheckIntervalSecs      int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WCT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy backfill variable names kept for operator scripts.
	_ = v.BindEnv("backfill.enabled", "WCT_BACKFILL_ENABLED", "ENABLE_HISTORICAL_BACKFILL")
	_ = v.BindEnv("backfill.days", "WCT_BACKFILL_DAYS", "HISTORICAL_DAYS")

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "wct.db")
	v.SetDefault("ebay.base_url", "https://api.ebay.com")
	v.SetDefault("ebay.auth_base_url", "https://api.ebay.com")
	v.SetDefault("ebay.marketplace", "EBAY_US")
	v.SetDefault("scan.batch_size", 30)
	v.SetDefault("scan.duration_secs", 0)
	v.SetDefault("scan.demote_threshold", 2)
	v.SetDefault("scan.demote_cooldown_secs", 600)
	v.SetDefault("state.cursor_path", "state/cursors.json")
	v.SetDefault("state.dedup_path", "state/dedup.json")
	v.SetDefault("state.keywords_path", "keywords.json")
	v.SetDefault("backfill.days", 30)
	v.SetDefault("monitoring.review_backlog_threshold", 200)
	v.SetDefault("monitoring.silence_after_hours", 12)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
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

	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return eris.New("config: store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Scan.BatchSize < 1 {
		return eris.New("config: scan.batch_size must be positive")
	}
	if c.Backfill.Enabled && c.Backfill.Days < 1 {
		return eris.New("config: backfill.days must be positive when backfill is enabled")
	}
	return nil
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
