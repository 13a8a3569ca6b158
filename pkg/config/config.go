package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"FxCast/pkg/util"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"2s"`
	} `yaml:"metrics"`
	Backend struct {
		BaseURL   string        `yaml:"base_url"`
		DemoMode  bool          `yaml:"demo_mode" default:"true"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
		Endpoints struct {
			Symbols    string `yaml:"symbols" default:"/api/symbols"`
			Health     string `yaml:"health" default:"/api/health"`
			Historical string `yaml:"historical" default:"/api/historical"`
			Forecast   string `yaml:"forecast" default:"/api/forecast"`
		} `yaml:"endpoints"`
		// PairMode sends {currency_pair, forecast_days, historical_data} instead of {ticker, horizon}.
		PairMode bool `yaml:"pair_mode"`
	} `yaml:"backend"`
	Forecast struct {
		MinHorizon     int    `yaml:"min_horizon" default:"3"`
		MaxHorizon     int    `yaml:"max_horizon" default:"30"`
		DefaultHorizon int    `yaml:"default_horizon" default:"14"`
		DefaultTicker  string `yaml:"default_ticker" default:"USD_RUB"`
		HistoryDays    int    `yaml:"history_days" default:"90"`
		// Concurrency is "reject" (a pending request blocks new ones) or "supersede".
		Concurrency string `yaml:"concurrency" default:"reject"`
	} `yaml:"forecast"`
	Demo struct {
		HistoryDelay  time.Duration `yaml:"history_delay" default:"2s"`
		ForecastDelay time.Duration `yaml:"forecast_delay" default:"2500ms"`
		ConnectDelay  time.Duration `yaml:"connect_delay" default:"1500ms"`
		Seed          int64         `yaml:"seed"`
	} `yaml:"demo"`
	Cache struct {
		CatalogTTL time.Duration `yaml:"catalog_ttl" default:"10m"`
		MemorySize int           `yaml:"memory_size" default:"256"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"fxcast"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Sink struct {
		Type       string        `yaml:"type" default:"none"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		Timeout    time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"sink"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"fxcast.forecasts"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"fxcast"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Health struct {
		Schedule string `yaml:"schedule" default:"@every 30s"`
	} `yaml:"health"`
	Notifications struct {
		DismissAfter time.Duration `yaml:"dismiss_after" default:"4s"`
	} `yaml:"notifications"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity" default:"5"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"1"`
	} `yaml:"rate_limit"`
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), then YAML, then overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FXCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("FXCAST_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = strings.TrimRight(v, "/")
		c.Backend.DemoMode = false
	}
	if v := os.Getenv("FXCAST_DEMO_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Backend.DemoMode = b
		}
	}
	if v := os.Getenv("FXCAST_REDIS_ADDR"); v != "" {
		host, port, _ := strings.Cut(v, ":")
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = host
		c.Cache.Redis.Port = util.ParseIntDefault(port, c.Cache.Redis.Port)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("FXCAST_SINK"); v != "" {
		c.Sink.Type = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// UseDemo reports whether forecasts are synthesized locally.
func (c *Config) UseDemo() bool {
	return c.Backend.DemoMode || c.Backend.BaseURL == ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Forecast.MinHorizon <= 0 || c.Forecast.MaxHorizon < c.Forecast.MinHorizon {
		return fmt.Errorf("forecast horizon range [%d,%d] is invalid", c.Forecast.MinHorizon, c.Forecast.MaxHorizon)
	}
	if c.Forecast.DefaultHorizon < c.Forecast.MinHorizon || c.Forecast.DefaultHorizon > c.Forecast.MaxHorizon {
		return fmt.Errorf("forecast.default_horizon %d outside [%d,%d]", c.Forecast.DefaultHorizon, c.Forecast.MinHorizon, c.Forecast.MaxHorizon)
	}
	if c.Forecast.HistoryDays < 2 {
		return fmt.Errorf("forecast.history_days must be at least 2")
	}
	switch c.Forecast.Concurrency {
	case "reject", "supersede":
	default:
		return fmt.Errorf("forecast.concurrency must be 'reject' or 'supersede', got '%s'", c.Forecast.Concurrency)
	}
	if !c.Backend.DemoMode && c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required when demo_mode is off")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	switch c.Sink.Type {
	case "none":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when sink.type is kafka")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when sink.type is clickhouse")
		}
	default:
		return fmt.Errorf("sink.type must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Sink.Type)
	}
	return nil
}
