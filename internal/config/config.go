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
	Build    BuildConfig    `yaml:"build" mapstructure:"build"`
	Metadata MetadataConfig `yaml:"metadata" mapstructure:"metadata"`
	Resolve  ResolveConfig  `yaml:"resolve" mapstructure:"resolve"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// BuildConfig configures the batch build.
type BuildConfig struct {
	InputDir         string `yaml:"input_dir" mapstructure:"input_dir"`
	OutDir           string `yaml:"out_dir" mapstructure:"out_dir"`
	EmbedThreshold   int    `yaml:"embed_threshold" mapstructure:"embed_threshold"`
	ExampleCap       int    `yaml:"example_cap" mapstructure:"example_cap"`
	ParseWorkers     int    `yaml:"parse_workers" mapstructure:"parse_workers"`
	DefaultPrecision string `yaml:"default_precision" mapstructure:"default_precision"`
}

// MetadataConfig points at an optional YAML file replacing the built-in
// model rules and file-name metadata table.
type MetadataConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ResolveConfig configures deferred dataset resolution.
type ResolveConfig struct {
	// BaseURL fetches deferred datasets over HTTP when set; otherwise they
	// are read from <out_dir>/data.
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Timeout returns TimeoutSecs as a duration.
func (r ResolveConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSecs) * time.Second
}

// StoreConfig configures the optional run ledger.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("IMAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("build.input_dir", "data_zips")
	v.SetDefault("build.out_dir", "docs")
	v.SetDefault("build.embed_threshold", 1000)
	v.SetDefault("build.example_cap", 20)
	v.SetDefault("build.parse_workers", 4)
	v.SetDefault("build.default_precision", "fp8")
	v.SetDefault("metadata.path", "")
	v.SetDefault("resolve.base_url", "")
	v.SetDefault("resolve.timeout_secs", 30)
	v.SetDefault("resolve.max_retries", 3)
	v.SetDefault("resolve.rate_per_sec", 10.0)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
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

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Build.EmbedThreshold < 0 {
		problems = append(problems, "build.embed_threshold must be >= 0")
	}
	if c.Build.ExampleCap < 1 {
		problems = append(problems, "build.example_cap must be >= 1")
	}
	if c.Build.ParseWorkers < 1 {
		problems = append(problems, "build.parse_workers must be >= 1")
	}
	if c.Resolve.TimeoutSecs < 1 {
		problems = append(problems, "resolve.timeout_secs must be >= 1")
	}
	if c.Resolve.MaxRetries < 0 {
		problems = append(problems, "resolve.max_retries must be >= 0")
	}
	if c.Resolve.RatePerSec <= 0 {
		problems = append(problems, "resolve.rate_per_sec must be > 0")
	}
	switch c.Store.Driver {
	case "none":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for driver "+c.Store.Driver)
		}
	default:
		problems = append(problems, "store.driver must be none, sqlite or postgres")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port out of range")
	}
	if len(problems) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(problems, "; "))
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
