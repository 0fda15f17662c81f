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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Cache     CacheConfig
	Events    EventsConfig
}

// DatabaseConfig configures the Postgres pool. LockTimeout bounds how long a scheduling
// transaction waits on advisory and row locks before Postgres reports lock_not_available.
type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	ApplicationName  string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnectTimeout   time.Duration
	LockTimeout      time.Duration
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	OpTimeout   time.Duration
}

// JWTConfig holds the shared secret used to verify tokens minted by the identity provider.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig carries the timetable constraint tunables.
type SchedulerConfig struct {
	MaxPhysicalSessionsPerGroupPerDay int
	MaxTotalHoursPerGroupPerDay       int
	MinHoursPerDay                    int
	RequireMixedMode                  bool
	AvoidConsecutiveSlots             bool
	PhysicalMinDurationHours          int
	MaxAssignmentAttempts             int
	MaxBulkDaysPerUnit                int
	TxRetries                         int
	TxRetryBackoff                    time.Duration
	RandomSeed                        int64
}

// CacheConfig governs Redis backed catalog caching.
type CacheConfig struct {
	Enabled    bool
	CatalogTTL time.Duration
	ViewTTL    time.Duration
}

// EventsConfig sizes the booking event queue.
type EventsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
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
		SSLMode:          v.GetString("DB_SSL_MODE"),
		ApplicationName:  v.GetString("DB_APPLICATION_NAME"),
		MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime:  parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		ConnectTimeout:   parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 10*time.Second),
		LockTimeout:      parseDuration(v.GetString("DB_LOCK_TIMEOUT"), 5*time.Second),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 30*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 2*time.Second),
		OpTimeout:   parseDuration(v.GetString("REDIS_OP_TIMEOUT"), 500*time.Millisecond),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		MaxPhysicalSessionsPerGroupPerDay: v.GetInt("MAX_PHYSICAL_SESSIONS_PER_GROUP_PER_DAY"),
		MaxTotalHoursPerGroupPerDay:       v.GetInt("MAX_TOTAL_HOURS_PER_GROUP_PER_DAY"),
		MinHoursPerDay:                    v.GetInt("MIN_HOURS_PER_DAY"),
		RequireMixedMode:                  v.GetBool("SCHEDULER_REQUIRE_MIXED_MODE"),
		AvoidConsecutiveSlots:             v.GetBool("SCHEDULER_AVOID_CONSECUTIVE_SLOTS"),
		PhysicalMinDurationHours:          v.GetInt("SCHEDULER_PHYSICAL_MIN_DURATION_HOURS"),
		MaxAssignmentAttempts:             v.GetInt("SCHEDULER_MAX_ASSIGNMENT_ATTEMPTS"),
		MaxBulkDaysPerUnit:                v.GetInt("SCHEDULER_MAX_BULK_DAYS_PER_UNIT"),
		TxRetries:                         v.GetInt("SCHEDULER_TX_RETRIES"),
		TxRetryBackoff:                    parseDuration(v.GetString("SCHEDULER_TX_RETRY_BACKOFF"), 25*time.Millisecond),
		RandomSeed:                        v.GetInt64("SCHEDULER_RANDOM_SEED"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		CatalogTTL: parseDuration(v.GetString("CACHE_CATALOG_TTL"), 5*time.Minute),
		ViewTTL:    parseDuration(v.GetString("CACHE_VIEW_TTL"), time.Minute),
	}

	cfg.Events = EventsConfig{
		Workers:    v.GetInt("EVENTS_WORKERS"),
		BufferSize: v.GetInt("EVENTS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("EVENTS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("EVENTS_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academic_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_APPLICATION_NAME", "academic-timetable-api")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONNECT_TIMEOUT", "10s")
	v.SetDefault("DB_LOCK_TIMEOUT", "5s")
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "2s")
	v.SetDefault("REDIS_OP_TIMEOUT", "500ms")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MAX_PHYSICAL_SESSIONS_PER_GROUP_PER_DAY", 2)
	v.SetDefault("MAX_TOTAL_HOURS_PER_GROUP_PER_DAY", 5)
	v.SetDefault("MIN_HOURS_PER_DAY", 2)
	v.SetDefault("SCHEDULER_REQUIRE_MIXED_MODE", true)
	v.SetDefault("SCHEDULER_AVOID_CONSECUTIVE_SLOTS", true)
	v.SetDefault("SCHEDULER_PHYSICAL_MIN_DURATION_HOURS", 2)
	v.SetDefault("SCHEDULER_MAX_ASSIGNMENT_ATTEMPTS", 5)
	v.SetDefault("SCHEDULER_MAX_BULK_DAYS_PER_UNIT", 120)
	v.SetDefault("SCHEDULER_TX_RETRIES", 3)
	v.SetDefault("SCHEDULER_TX_RETRY_BACKOFF", "25ms")
	v.SetDefault("SCHEDULER_RANDOM_SEED", 0)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_CATALOG_TTL", "5m")
	v.SetDefault("CACHE_VIEW_TTL", "1m")

	v.SetDefault("EVENTS_WORKERS", 1)
	v.SetDefault("EVENTS_BUFFER_SIZE", 64)
	v.SetDefault("EVENTS_MAX_RETRIES", 3)
	v.SetDefault("EVENTS_RETRY_DELAY", "1s")
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
