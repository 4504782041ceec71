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

// Storage backends for certificate files.
const (
	StorageBackendLocal      = "local"
	StorageBackendCloudinary = "cloudinary"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Storage  StorageConfig
	Reports  ReportsConfig
	Rules    RulesConfig
	Catalog  CatalogConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects and configures the certificate file store.
type StorageConfig struct {
	Backend          string
	LocalDir         string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// RulesConfig holds the hour-allocation policy knobs.
type RulesConfig struct {
	// CountPending controls whether Pending activities consume cap room
	// when a new submission is evaluated. Approved always counts,
	// Rejected never does.
	CountPending bool
	// ExternalRatioEnabled toggles the portfolio-wide minimum share of
	// external hours. Off unless the institution enforces it.
	ExternalRatioEnabled bool
	ExternalMinRatio     float64
	// TotalHoursTarget is the course-completion goal shown on dashboards.
	TotalHoursTarget float64
}

// CatalogConfig tunes rule-catalog caching.
type CatalogConfig struct {
	CacheTTL time.Duration
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
		if !errors.As(err, &notFound) {
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

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxCertSize := v.GetInt64("STORAGE_MAX_FILE_SIZE")
	if maxCertSize <= 0 {
		maxCertSize = 10 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Backend:             v.GetString("STORAGE_BACKEND"),
		LocalDir:            v.GetString("STORAGE_LOCAL_DIR"),
		SignedURLSecret:     v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:        parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), time.Hour),
		MaxFileSizeBytes:    maxCertSize,
		AllowedMIMEs:        splitAndTrim(v.GetString("STORAGE_ALLOWED_MIME_TYPES")),
		CloudinaryCloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),
		CloudinaryFolder:    v.GetString("CLOUDINARY_FOLDER"),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	cfg.Rules = RulesConfig{
		CountPending:         v.GetBool("RULES_COUNT_PENDING"),
		ExternalRatioEnabled: v.GetBool("RULES_EXTERNAL_RATIO_ENABLED"),
		ExternalMinRatio:     v.GetFloat64("RULES_EXTERNAL_MIN_RATIO"),
		TotalHoursTarget:     v.GetFloat64("RULES_TOTAL_HOURS_TARGET"),
	}

	cfg.Catalog = CatalogConfig{
		CacheTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), 10*time.Minute),
	}

	if err := validate(cfg); err != nil {
		return nil, err
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
	v.SetDefault("DB_NAME", "horas")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_BACKEND", StorageBackendLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./data/certificates")
	v.SetDefault("STORAGE_ALLOWED_MIME_TYPES", "application/pdf")

	v.SetDefault("REPORTS_STORAGE_DIR", "./data/reports")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 2)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)

	v.SetDefault("RULES_COUNT_PENDING", true)
	v.SetDefault("RULES_EXTERNAL_RATIO_ENABLED", false)
	v.SetDefault("RULES_EXTERNAL_MIN_RATIO", 0.2)
	v.SetDefault("RULES_TOTAL_HOURS_TARGET", 545)
}

func validate(cfg *Config) error {
	if cfg.Env == EnvProduction && cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET must be set in production")
	}
	if cfg.Storage.Backend != StorageBackendLocal && cfg.Storage.Backend != StorageBackendCloudinary {
		return errors.New("STORAGE_BACKEND must be local or cloudinary")
	}
	if cfg.Rules.ExternalMinRatio < 0 || cfg.Rules.ExternalMinRatio > 1 {
		return errors.New("RULES_EXTERNAL_MIN_RATIO must be within [0,1]")
	}
	return nil
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
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
