// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	Password string `yaml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		StaticDir   string `yaml:"static_dir"`

		// TrustProxy honors X-Forwarded-For and X-Forwarded-Proto.
		TrustProxy      bool          `yaml:"trust_proxy"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SecretKey       string        `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Backend struct {
		BaseURL string `yaml:"base_url"`
		// Zero means no timeout; requests still stop when the caller's context ends.
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"backend"`

	Session struct {
		CookieName string        `yaml:"cookie_name"`
		TTL        time.Duration `yaml:"ttl"`
		Driver     string        `yaml:"driver"`
	} `yaml:"session"`

	Cache struct {
		Driver string        `yaml:"driver"`
		TTL    time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Redis RedisConfig `yaml:"redis"`

	Database DatabaseConfig `yaml:"database"`

	Tables struct {
		PageSize   int `yaml:"page_size"`
		FetchLimit int `yaml:"fetch_limit"`
	} `yaml:"tables"`

	Dashboard struct {
		PhoneRegion string `yaml:"phone_region"`
		RecentLimit int    `yaml:"recent_limit"`
	} `yaml:"dashboard"`

	Login struct {
		MaxAttempts  int           `yaml:"max_attempts"`
		Lockout      time.Duration `yaml:"lockout"`
		MaxIPPerHour int           `yaml:"max_ip_per_hour"`
	} `yaml:"login"`

	Scheduler struct {
		SessionSweep     string        `yaml:"session_sweep"`
		JournalPrune     string        `yaml:"journal_prune"`
		JournalRetention time.Duration `yaml:"journal_retention"`
	} `yaml:"scheduler"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if baseURL := os.Getenv("BACKEND_BASE_URL"); baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and fills defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.StaticDir == "" {
		c.App.StaticDir = "build/bin/static"
	}
	if c.App.ShutdownTimeout == 0 {
		c.App.ShutdownTimeout = 30 * time.Second
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "drivewise_session"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 12 * time.Hour
	}
	if c.Session.Driver == "" {
		c.Session.Driver = DriverMemory
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = DriverMemory
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = c.Session.TTL
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "drivewise:"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Tables.PageSize == 0 {
		c.Tables.PageSize = 7
	}
	if c.Tables.FetchLimit == 0 {
		c.Tables.FetchLimit = 50
	}
	if c.Dashboard.PhoneRegion == "" {
		c.Dashboard.PhoneRegion = "US"
	}
	if c.Dashboard.RecentLimit == 0 {
		c.Dashboard.RecentLimit = 5
	}
	if c.Login.MaxAttempts == 0 {
		c.Login.MaxAttempts = 5
	}
	if c.Login.Lockout == 0 {
		c.Login.Lockout = 5 * time.Minute
	}
	if c.Login.MaxIPPerHour == 0 {
		c.Login.MaxIPPerHour = 30
	}
	if c.Scheduler.SessionSweep == "" {
		c.Scheduler.SessionSweep = "*/15 * * * *"
	}
	if c.Scheduler.JournalPrune == "" {
		c.Scheduler.JournalPrune = "0 3 * * *"
	}
	if c.Scheduler.JournalRetention == 0 {
		c.Scheduler.JournalRetention = 90 * 24 * time.Hour
	}
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend base URL must start with http:// or https://")
	}
	if c.Backend.RequestTimeout < 0 {
		return fmt.Errorf("backend request timeout must not be negative")
	}

	usesRedis := false
	for name, driver := range map[string]string{"session": c.Session.Driver, "cache": c.Cache.Driver} {
		switch driver {
		case DriverMemory:
		case DriverRedis:
			usesRedis = true
		default:
			return fmt.Errorf("unsupported %s driver: %s", name, driver)
		}
	}
	if usesRedis && c.Redis.Address == "" {
		return fmt.Errorf("redis address is required when a redis driver is selected")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Tables.PageSize < 1 {
		return fmt.Errorf("tables page size must be at least 1")
	}
	if c.Tables.FetchLimit < 1 {
		return fmt.Errorf("tables fetch limit must be at least 1")
	}

	for name, expr := range map[string]string{
		"session_sweep": c.Scheduler.SessionSweep,
		"journal_prune": c.Scheduler.JournalPrune,
	} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("scheduler %s: invalid cron expression %q: %w", name, expr, err)
		}
	}

	return nil
}
