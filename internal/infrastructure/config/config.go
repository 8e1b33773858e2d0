package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`

	Analysis  AnalysisConfig  `koanf:"analysis"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	ACLED     ACLEDConfig     `koanf:"acled"`
	News      NewsConfig      `koanf:"news"`
	Sentiment SentimentConfig `koanf:"sentiment"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Security  SecurityConfig  `koanf:"security"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string        `koanf:"url"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

// AnalysisConfig carries the detection knobs. Threshold is a policy choice,
// never hard-coded in the detector.
type AnalysisConfig struct {
	Countries []string `koanf:"countries" validate:"min=1"`
	Period    string   `koanf:"period" validate:"oneof=week month"`
	Window    int      `koanf:"window" validate:"min=3"`
	Threshold float64  `koanf:"threshold" validate:"gt=0"`
	Lookback  int      `koanf:"lookback" validate:"min=1"`

	EventLookback time.Duration `koanf:"event_lookback"`
}

type SchedulerConfig struct {
	Interval     time.Duration `koanf:"interval" validate:"gt=0"`
	StartupDelay time.Duration `koanf:"startup_delay"`
	Enabled      bool          `koanf:"enabled"`
}

type ACLEDConfig struct {
	BaseURL    string  `koanf:"base_url"`
	Key        string  `koanf:"key"`
	Email      string  `koanf:"email"`
	EventTypes string  `koanf:"event_types"`
	RateLimit  float64 `koanf:"rate_limit"`
	RateBurst  int     `koanf:"rate_burst"`
}

type NewsConfig struct {
	BaseURL  string        `koanf:"base_url"`
	APIKey   string        `koanf:"api_key"`
	Lookback time.Duration `koanf:"lookback"`
}

type SentimentConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type OpenAIConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

type SecurityConfig struct {
	JWTSecret   string        `koanf:"jwt_secret"`
	TokenExpiry time.Duration `koanf:"token_expiry"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	Enabled      bool   `koanf:"enabled"`
}

// Load builds the configuration from defaults, an optional
// configs/config.yaml, and SENTINEL_-prefixed environment variables, in that
// precedence order.
func Load() (*Config, error) {
	return LoadFrom("configs/config.yaml")
}

// LoadFrom is Load with an explicit config file path, used by tests.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
		Analysis: AnalysisConfig{
			Countries:     []string{"Sudan", "Mali", "Nigeria", "Ethiopia", "Somalia"},
			Period:        "week",
			Window:        12,
			Threshold:     2.0,
			Lookback:      4,
			EventLookback: 365 * 24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Interval:     24 * time.Hour,
			StartupDelay: 10 * time.Second,
			Enabled:      true,
		},
		ACLED: ACLEDConfig{
			BaseURL:    "https://api.acleddata.com/acled/read",
			EventTypes: "Violence against civilians|Explosions/Remote violence|Battles",
			RateLimit:  2,
			RateBurst:  4,
		},
		News: NewsConfig{
			BaseURL:  "https://google.serper.dev/news",
			Lookback: 24 * time.Hour,
		},
		Sentiment: SentimentConfig{
			BaseURL: "http://localhost:5001",
			Timeout: 15 * time.Second,
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Security: SecurityConfig{
			TokenExpiry: 24 * time.Hour,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional.
	_ = k.Load(file.Provider(path), yaml.Parser())

	if err := k.Load(env.Provider("SENTINEL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "SENTINEL_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}
