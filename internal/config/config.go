package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	StrictSchema    bool
}

type LogConfig struct {
	Level string
	File  string
}

type AnalyticsConfig struct {
	DefaultRangeDays     int
	DashboardParallelism int
	QueryTimeout         time.Duration
}

type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

type Config struct {
	Environment    string
	HTTP           HTTPConfig
	DB             DBConfig
	Log            LogConfig
	Analytics      AnalyticsConfig
	Cache          CacheConfig
	MetricsEnabled bool
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()
	setDefaults(v)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			StrictSchema:    v.GetBool("DB_STRICT_SCHEMA"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
		Analytics: AnalyticsConfig{
			DefaultRangeDays:     v.GetInt("ANALYTICS_DEFAULT_RANGE_DAYS"),
			DashboardParallelism: v.GetInt("ANALYTICS_DASHBOARD_PARALLELISM"),
			QueryTimeout:         v.GetDuration("ANALYTICS_QUERY_TIMEOUT"),
		},
		Cache: CacheConfig{
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TTL:           v.GetDuration("CACHE_TTL"),
		},
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 7085)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_STRICT_SCHEMA", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ANALYTICS_DEFAULT_RANGE_DAYS", 30)
	v.SetDefault("ANALYTICS_DASHBOARD_PARALLELISM", 4)
	v.SetDefault("ANALYTICS_QUERY_TIMEOUT", "15s")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("METRICS_ENABLED", true)
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", cfg.HTTP.Port)
	}
	if cfg.Analytics.DefaultRangeDays < 1 {
		return fmt.Errorf("ANALYTICS_DEFAULT_RANGE_DAYS must be positive")
	}
	if cfg.Analytics.DashboardParallelism < 1 {
		return fmt.Errorf("ANALYTICS_DASHBOARD_PARALLELISM must be at least 1")
	}
	if cfg.Cache.Enabled() && cfg.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when REDIS_ADDR is set")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
