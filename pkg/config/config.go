package config

import (
	"errors"
	"io/fs"
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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Enrollment EnrollmentConfig
	Sweeper    SweeperConfig
	Audit      AuditConfig
	Migrations MigrationsConfig
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

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EnrollmentConfig tunes the cart workflow.
type EnrollmentConfig struct {
	ActiveTermID      string
	HoldDuration      time.Duration
	OfferingsCacheTTL time.Duration
	CacheEnabled      bool
}

// SweeperConfig controls the expiry sweeper worker.
type SweeperConfig struct {
	Interval time.Duration
	LockKey  string
	LockTTL  time.Duration
}

// AuditConfig sizes the out-of-band audit queue.
type AuditConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// MigrationsConfig toggles goose auto-run on boot. An empty Dir uses the embedded migrations.
type MigrationsConfig struct {
	AutoRun bool
	Dir     string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Enrollment = EnrollmentConfig{
		ActiveTermID:      v.GetString("ACTIVE_TERM_ID"),
		HoldDuration:      parseDuration(v.GetString("CART_HOLD_DURATION"), 15*time.Minute),
		OfferingsCacheTTL: parseDuration(v.GetString("OFFERINGS_CACHE_TTL"), 5*time.Minute),
		CacheEnabled:      v.GetBool("ENABLE_OFFERINGS_CACHE"),
	}

	cfg.Sweeper = SweeperConfig{
		Interval: parseDuration(v.GetString("SWEEP_INTERVAL"), time.Minute),
		LockKey:  v.GetString("SWEEP_LOCK_KEY"),
		LockTTL:  parseDuration(v.GetString("SWEEP_LOCK_TTL"), 5*time.Minute),
	}

	cfg.Audit = AuditConfig{
		Workers:    v.GetInt("AUDIT_WORKERS"),
		Retries:    v.GetInt("AUDIT_RETRIES"),
		RetryDelay: parseDuration(v.GetString("AUDIT_RETRY_DELAY"), time.Second),
	}

	cfg.Migrations = MigrationsConfig{
		AutoRun: v.GetBool("AUTO_MIGRATE"),
		Dir:     v.GetString("MIGRATIONS_DIR"),
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
	v.SetDefault("DB_NAME", "sisacad")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ACTIVE_TERM_ID", "")
	v.SetDefault("CART_HOLD_DURATION", "15m")
	v.SetDefault("OFFERINGS_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_OFFERINGS_CACHE", false)

	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("SWEEP_LOCK_KEY", "sisacad:sweeper:lock")
	v.SetDefault("SWEEP_LOCK_TTL", "5m")

	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_RETRIES", 3)
	v.SetDefault("AUDIT_RETRY_DELAY", "1s")

	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("MIGRATIONS_DIR", "")
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
