package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers understood by StoreDriver.
const (
	StoreDriverRedis    = "redis"
	StoreDriverBolt     = "bolt"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config holds runtime configuration values for the homework board service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	Timezone        string
	StoreDriver     string
	StoreNamespace  string
	RedisURL        string
	BoltPath        string
	DatabaseURL     string
	NATSURL         string
	NATSSubjectBase string
	MaxImageMB      int
	LiveKeepAlive   time.Duration
	SessionTTL      time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	AllowOrigins    string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Location resolves the configured time zone used to decide "today".
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HOMEWORK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Homework Board")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.timezone", "Asia/Seoul")
	v.SetDefault("store.driver", StoreDriverRedis)
	v.SetDefault("store.namespace", "homework")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("bolt.path", "homework.db")
	v.SetDefault("nats.subject_base", "homework")
	v.SetDefault("schedule.max_image_mb", 5)
	v.SetDefault("live.keepalive", "30s")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("http.allow_origins", "*")

	keepalive, err := parseDuration(v, "live.keepalive")
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := parseDuration(v, "session.ttl")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		Timezone:        v.GetString("app.timezone"),
		StoreDriver:     strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
		StoreNamespace:  v.GetString("store.namespace"),
		RedisURL:        v.GetString("redis.url"),
		BoltPath:        v.GetString("bolt.path"),
		DatabaseURL:     v.GetString("database.url"),
		NATSURL:         v.GetString("nats.url"),
		NATSSubjectBase: v.GetString("nats.subject_base"),
		MaxImageMB:      v.GetInt("schedule.max_image_mb"),
		LiveKeepAlive:   keepalive,
		SessionTTL:      sessionTTL,
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: rateWindow,
		AllowOrigins:    strings.TrimSpace(v.GetString("http.allow_origins")),
	}

	switch cfg.StoreDriver {
	case StoreDriverRedis, StoreDriverBolt, StoreDriverSQLite:
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("database url must be provided for the postgres store")
		}
	default:
		return Config{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if _, err := cfg.Location(); err != nil {
		return Config{}, fmt.Errorf("invalid timezone: %w", err)
	}

	if cfg.MaxImageMB <= 0 {
		cfg.MaxImageMB = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
