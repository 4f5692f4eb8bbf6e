package config

import (
	"fmt"
	"strings"
	"time"

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

	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Providers ProvidersConfig `koanf:"providers"`

	Scheduling SchedulingConfig `koanf:"scheduling"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	MetricsPort     int           `koanf:"metrics_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type ProvidersConfig struct {
	Geo     GeoProviderConfig     `koanf:"geo"`
	Weather WeatherProviderConfig `koanf:"weather"`
}

type GeoProviderConfig struct {
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`

	// AverageSpeedKmh drives the straight-line fallback estimate when the
	// routing provider is unreachable.
	AverageSpeedKmh float64 `koanf:"average_speed_kmh"`
}

type WeatherProviderConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// SchedulingConfig carries the business rules of the scheduling policy.
type SchedulingConfig struct {
	BufferMinutes  int  `koanf:"buffer_minutes"`
	MaxDailyJobs   int  `koanf:"max_daily_jobs"`
	WeatherGating  bool `koanf:"weather_gating"`
	AllowOvernight bool `koanf:"allow_overnight"`

	// SearchWindowDays bounds how far ahead availability search walks.
	SearchWindowDays int `koanf:"search_window_days"`

	// Slot ranking weights; tunable, not fixed constants.
	TimeProximityWeight float64 `koanf:"time_proximity_weight"`
	TravelBurdenWeight  float64 `koanf:"travel_burden_weight"`

	// LockWait bounds how long a reservation waits for a professional's
	// exclusive section before failing with a concurrent conflict.
	LockWait time.Duration `koanf:"lock_wait"`

	// AvailabilityCacheTTL controls the slot search result cache.
	AvailabilityCacheTTL time.Duration `koanf:"availability_cache_ttl"`
}

type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	OTLPEndpoint  string        `koanf:"otlp_endpoint"`
	SamplingRate  float64       `koanf:"sampling_rate"`
	ExportTimeout time.Duration `koanf:"export_timeout"`
	BatchTimeout  time.Duration `koanf:"batch_timeout"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults
	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			MetricsPort:     9090,
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
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Providers: ProvidersConfig{
			Geo: GeoProviderConfig{
				Timeout:           2 * time.Second,
				RequestsPerSecond: 10,
				Burst:             20,
				AverageSpeedKmh:   35,
			},
			Weather: WeatherProviderConfig{
				Timeout: 2 * time.Second,
			},
		},
		Scheduling: SchedulingConfig{
			BufferMinutes:        15,
			MaxDailyJobs:         6,
			WeatherGating:        true,
			SearchWindowDays:     7,
			TimeProximityWeight:  1.0,
			TravelBurdenWeight:   1.0,
			LockWait:             2 * time.Second,
			AvailabilityCacheTTL: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			SamplingRate:  0.1,
			ExportTimeout: 30 * time.Second,
			BatchTimeout:  5 * time.Second,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Load from config file if it exists; the file is optional.
	if path == "" {
		path = "configs/config.yaml"
	}
	_ = k.Load(file.Provider(path), yaml.Parser())

	// Override with environment variables
	if err := k.Load(env.Provider("FSV_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "FSV_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Buffer returns the idle buffer between jobs as a duration.
func (c SchedulingConfig) Buffer() time.Duration {
	return time.Duration(c.BufferMinutes) * time.Minute
}
