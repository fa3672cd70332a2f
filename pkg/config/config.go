package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Divider  DividerConfig
	Calendar CalendarConfig
	DayTypes DayTypesConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DividerConfig sizes the background timesheet division pool.
type DividerConfig struct {
	Workers        int
	QueueSize      int
	JobRetries     int
	RetryDelay     time.Duration
	// JobTimeout bounds a single employee-month, not a whole queued job.
	JobTimeout     time.Duration
	StorageRetries int
	DefaultAlias   string
}

// CalendarConfig governs the production calendar cache.
type CalendarConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// DayTypesConfig points to an optional YAML seed overriding the built-in catalog.
type DayTypesConfig struct {
	SeedFile string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Divider = DividerConfig{
		Workers:        v.GetInt("DIVIDER_WORKERS"),
		QueueSize:      v.GetInt("DIVIDER_QUEUE_SIZE"),
		JobRetries:     v.GetInt("DIVIDER_JOB_RETRIES"),
		RetryDelay:     parseDuration(v.GetString("DIVIDER_RETRY_DELAY"), time.Second),
		JobTimeout:     parseDuration(v.GetString("DIVIDER_JOB_TIMEOUT"), 60*time.Second),
		StorageRetries: v.GetInt("DIVIDER_STORAGE_RETRIES"),
		DefaultAlias:   v.GetString("DIVIDER_DEFAULT_ALIAS"),
	}

	cfg.Calendar = CalendarConfig{
		CacheEnabled: v.GetBool("ENABLE_CALENDAR_CACHE"),
		CacheTTL:     parseDuration(v.GetString("PRODUCTION_CALENDAR_CACHE_TTL"), 24*time.Hour),
	}

	cfg.DayTypes = DayTypesConfig{SeedFile: v.GetString("DAY_TYPES_SEED_FILE")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "wfm")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DIVIDER_WORKERS", 4)
	v.SetDefault("DIVIDER_QUEUE_SIZE", 64)
	v.SetDefault("DIVIDER_JOB_RETRIES", 3)
	v.SetDefault("DIVIDER_RETRY_DELAY", "1s")
	v.SetDefault("DIVIDER_JOB_TIMEOUT", "60s")
	v.SetDefault("DIVIDER_STORAGE_RETRIES", 3)
	v.SetDefault("DIVIDER_DEFAULT_ALIAS", "nahodka")

	v.SetDefault("ENABLE_CALENDAR_CACHE", true)
	v.SetDefault("PRODUCTION_CALENDAR_CACHE_TTL", "24h")
	v.SetDefault("DAY_TYPES_SEED_FILE", "")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
