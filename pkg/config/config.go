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
	Migrations MigrationsConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Catalog    CatalogConfig
	Purchases  PurchasesConfig
	Proofs     ProofsConfig
	RateLimit  RateLimitConfig
	Monitor    MonitorConfig
	Audit      AuditConfig
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
	// ApplicationName tags sessions in pg_stat_activity.
	ApplicationName  string
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
}

// MigrationsConfig controls schema migrations applied at boot.
type MigrationsConfig struct {
	Enabled bool
	Dir     string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	// KeyPrefix namespaces every catalog key so one Redis can serve several environments.
	KeyPrefix   string
	PoolSize    int
	DialTimeout time.Duration
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CatalogConfig governs caching of public catalog reads.
type CatalogConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// PurchasesConfig tunes the purchase workflow.
type PurchasesConfig struct {
	DefaultCurrency        string
	DefaultProvider        string
	RejectDuplicatePending bool
}

// ProofsConfig controls payment proof uploads.
type ProofsConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// RateLimitConfig bounds per-client request rates on sensitive routes.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// MonitorConfig schedules the pending purchase monitor.
type MonitorConfig struct {
	Enabled        bool
	Schedule       string
	StaleThreshold time.Duration
}

// AuditConfig sizes the asynchronous audit writer.
type AuditConfig struct {
	Workers    int
	MaxRetries int
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

		ApplicationName:  v.GetString("DB_APPLICATION_NAME"),
		ConnMaxLifetime:  parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 15*time.Second),
	}

	cfg.Migrations = MigrationsConfig{
		Enabled: v.GetBool("RUN_MIGRATIONS"),
		Dir:     v.GetString("MIGRATIONS_DIR"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),

		KeyPrefix:   v.GetString("REDIS_KEY_PREFIX"),
		PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Catalog = CatalogConfig{
		CacheEnabled: v.GetBool("CATALOG_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Purchases = PurchasesConfig{
		DefaultCurrency:        strings.ToUpper(v.GetString("PURCHASES_DEFAULT_CURRENCY")),
		DefaultProvider:        strings.ToUpper(v.GetString("PURCHASES_DEFAULT_PROVIDER")),
		RejectDuplicatePending: v.GetBool("PURCHASES_REJECT_DUPLICATE_PENDING"),
	}

	maxProofSize := v.GetInt64("PROOFS_MAX_FILE_SIZE")
	if maxProofSize <= 0 {
		maxProofSize = 5 * 1024 * 1024
	}
	cfg.Proofs = ProofsConfig{
		StorageDir:       v.GetString("PROOFS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("PROOFS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("PROOFS_SIGNED_URL_TTL"), 30*24*time.Hour),
		MaxFileSizeBytes: maxProofSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("PROOFS_ALLOWED_MIME_TYPES")),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:           v.GetBool("RATE_LIMIT_ENABLED"),
		RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
		Burst:             v.GetInt("RATE_LIMIT_BURST"),
	}

	cfg.Monitor = MonitorConfig{
		Enabled:        v.GetBool("PENDING_MONITOR_ENABLED"),
		Schedule:       v.GetString("PENDING_MONITOR_SCHEDULE"),
		StaleThreshold: parseDuration(v.GetString("PENDING_MONITOR_STALE_AFTER"), 48*time.Hour),
	}

	cfg.Audit = AuditConfig{
		Workers:    v.GetInt("AUDIT_WORKERS"),
		MaxRetries: v.GetInt("AUDIT_MAX_RETRIES"),
	}

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
	v.SetDefault("DB_NAME", "course_market")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_APPLICATION_NAME", "course-market-api")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_STATEMENT_TIMEOUT", "15s")

	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "coursemarket:")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "course-market-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CATALOG_CACHE_ENABLED", false)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")

	v.SetDefault("PURCHASES_DEFAULT_CURRENCY", "ETB")
	v.SetDefault("PURCHASES_DEFAULT_PROVIDER", "TELEBIRR")
	v.SetDefault("PURCHASES_REJECT_DUPLICATE_PENDING", false)

	v.SetDefault("PROOFS_STORAGE_DIR", "./proofs")
	v.SetDefault("PROOFS_SIGNED_URL_SECRET", "dev_proofs_secret")
	v.SetDefault("PROOFS_SIGNED_URL_TTL", "720h")
	v.SetDefault("PROOFS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("PROOFS_ALLOWED_MIME_TYPES", "image/png,image/jpeg,image/webp")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)

	v.SetDefault("PENDING_MONITOR_ENABLED", true)
	v.SetDefault("PENDING_MONITOR_SCHEDULE", "@every 1m")
	v.SetDefault("PENDING_MONITOR_STALE_AFTER", "48h")

	v.SetDefault("AUDIT_WORKERS", 2)
	v.SetDefault("AUDIT_MAX_RETRIES", 3)
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
