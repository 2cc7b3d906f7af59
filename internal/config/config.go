package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                    string
	AllowedOrigin           string
	DatabaseURL             string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	AuthSecret              string
	AccessTokenTTLMinutes   int
	ReportCacheTTLSeconds   int
	ReconcileLockTTLSeconds int
	AppEnv                  string
	LogLevel                string
	LogFormat               string
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the .env file.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("REPORT_CACHE_TTL_SECONDS", 60)
	v.SetDefault("RECONCILE_LOCK_TTL_SECONDS", 300)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "AUTH_SECRET", "LOG_FORMAT"} {
		_ = v.BindEnv(key)
	}

	return Config{
		Port:                    stringOr(v, "PORT", "8080"),
		AllowedOrigin:           stringOr(v, "ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:             strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:               strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:           v.GetString("REDIS_PASSWORD"),
		RedisDB:                 nonNegativeInt(v, "REDIS_DB", 0),
		AuthSecret:              strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes:   positiveInt(v, "ACCESS_TOKEN_TTL_MINUTES", 480),
		ReportCacheTTLSeconds:   positiveInt(v, "REPORT_CACHE_TTL_SECONDS", 60),
		ReconcileLockTTLSeconds: positiveInt(v, "RECONCILE_LOCK_TTL_SECONDS", 300),
		AppEnv:                  stringOr(v, "APP_ENV", "development"),
		LogLevel:                stringOr(v, "LOG_LEVEL", "info"),
		LogFormat:               strings.TrimSpace(v.GetString("LOG_FORMAT")),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheTTLSeconds) * time.Second
}

func (c Config) ReconcileLockTTL() time.Duration {
	return time.Duration(c.ReconcileLockTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func stringOr(v *viper.Viper, key string, fallback string) string {
	if val := strings.TrimSpace(v.GetString(key)); val != "" {
		return val
	}
	return fallback
}

// positiveInt falls back when the value is missing, non-numeric or below 1.
func positiveInt(v *viper.Viper, key string, fallback int) int {
	if n := v.GetInt(key); n >= 1 {
		return n
	}
	return fallback
}

func nonNegativeInt(v *viper.Viper, key string, fallback int) int {
	if n := v.GetInt(key); n >= 0 {
		return n
	}
	return fallback
}
