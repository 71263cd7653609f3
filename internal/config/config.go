package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/classy-weather/internal/client"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	GeocodingAPIURL   string
	ForecastAPIURL    string
	WeatherAPITimeout time.Duration

	FetchTimeout    time.Duration
	TemperatureUnit client.TemperatureUnit

	LocationMinLength int
	LocationMaxLength int

	CacheBackend string // "in_memory", "memcached" or "none"
	CacheTTL     time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	WarmLocations []string
	WarmInterval  time.Duration

	StoreBackend        string // "memory", "file" or "memcached"
	StorePath           string
	StoreMemcachedAddrs string

	RateLimitRPS   int
	RateLimitBurst int

	DegradedWindow   time.Duration
	DegradedErrorPct int

	SessionIdleTTL  time.Duration
	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	GeocodingAPI struct {
		URL string `yaml:"url"`
	} `yaml:"geocoding_api"`

	ForecastAPI struct {
		URL string `yaml:"url"`
	} `yaml:"forecast_api"`

	WeatherAPI struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Fetch struct {
		Timeout         string `yaml:"timeout"`
		TemperatureUnit string `yaml:"temperature_unit"`
	} `yaml:"fetch"`

	Location struct {
		MinLength int `yaml:"min_length"`
		MaxLength int `yaml:"max_length"`
	} `yaml:"location"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		WarmLocations []string `yaml:"warm_locations"`
		WarmInterval  string   `yaml:"warm_interval"`
	} `yaml:"cache"`

	Store struct {
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		Memcached struct {
			Addrs string `yaml:"addrs"`
		} `yaml:"memcached"`
	} `yaml:"store"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	Session struct {
		IdleTTL string `yaml:"idle_ttl"`
	} `yaml:"session"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) relative to the
// working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(filepath.Join(cwd, "config"))
}

// LoadFrom reads {dir}/{ENV_NAME}.yaml (default dev) and applies env overrides.
func LoadFrom(dir string) (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(dir, env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = envOr("SERVER_PORT", fc.Server.Port)
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.GeocodingAPIURL = strings.TrimSpace(fc.GeocodingAPI.URL)
	if cfg.GeocodingAPIURL == "" {
		cfg.GeocodingAPIURL = client.DefaultGeocodingURL
	}
	cfg.ForecastAPIURL = strings.TrimSpace(fc.ForecastAPI.URL)
	if cfg.ForecastAPIURL == "" {
		cfg.ForecastAPIURL = client.DefaultForecastURL
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)

	cfg.FetchTimeout = parseDuration(fc.Fetch.Timeout, 10*time.Second)
	unit := envOr("TEMPERATURE_UNIT", fc.Fetch.TemperatureUnit)
	if unit == "" {
		cfg.TemperatureUnit = client.Fahrenheit
	} else {
		cfg.TemperatureUnit, err = client.ParseTemperatureUnit(unit)
		if err != nil {
			return nil, fmt.Errorf("fetch.temperature_unit: %w", err)
		}
	}

	cfg.LocationMinLength = fc.Location.MinLength
	if cfg.LocationMinLength <= 0 {
		cfg.LocationMinLength = 2
	}
	cfg.LocationMaxLength = fc.Location.MaxLength
	if cfg.LocationMaxLength <= 0 {
		cfg.LocationMaxLength = 100
	}

	cfg.CacheBackend = strings.ToLower(envOr("CACHE_BACKEND", fc.Cache.Backend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.MemcachedAddrs = envOr("MEMCACHED_ADDRS", fc.Cache.Memcached.Addrs)
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.WarmLocations = fc.Cache.WarmLocations
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.WarmInterval, 0)

	cfg.StoreBackend = strings.ToLower(envOr("STORE_BACKEND", fc.Store.Backend))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "memory"
	}
	cfg.StorePath = envOr("STORE_PATH", fc.Store.Path)
	if cfg.StorePath == "" {
		cfg.StorePath = "data/prefs.yaml"
	}
	cfg.StoreMemcachedAddrs = strings.TrimSpace(fc.Store.Memcached.Addrs)
	if cfg.StoreMemcachedAddrs == "" {
		cfg.StoreMemcachedAddrs = cfg.MemcachedAddrs
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.SessionIdleTTL = parseDuration(fc.Session.IdleTTL, 30*time.Minute)
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOr returns the trimmed env var key, or fallback (trimmed) when unset.
func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// FetchTimeout is raised to at least WeatherAPITimeout so a single upstream call
// can complete inside one fetch.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.FetchTimeout < cfg.WeatherAPITimeout {
		cfg.FetchTimeout = cfg.WeatherAPITimeout
	}
	if cfg.LocationMaxLength < cfg.LocationMinLength {
		return fmt.Errorf("location.max_length (%d) must be >= location.min_length (%d)",
			cfg.LocationMaxLength, cfg.LocationMinLength)
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("health.degraded_error_pct must be at most 100, got %d", cfg.DegradedErrorPct)
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached", "none":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory, memcached or none, got %q", cfg.CacheBackend)
	}
	switch cfg.StoreBackend {
	case "memory", "file", "memcached":
		// valid
	default:
		return fmt.Errorf("store.backend must be memory, file or memcached, got %q", cfg.StoreBackend)
	}
	return nil
}
