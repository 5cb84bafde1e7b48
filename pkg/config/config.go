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

// Catalog sources for the wizard's module loader.
const (
	CatalogSourceLocal  = "local"
	CatalogSourceRemote = "remote"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Catalog   CatalogConfig
	Wizard    WizardConfig
	Submit    SubmitConfig
	Telemetry TelemetryConfig
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
	Enabled  bool
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

// CatalogConfig controls where module catalogs come from and how they are cached.
type CatalogConfig struct {
	Source         string
	Endpoint       string
	Timeout        time.Duration
	ValidateSchema bool
	CacheEnabled   bool
	CacheTTL       time.Duration
}

// WizardConfig holds pricing and session tuning for the pre-contract wizard.
type WizardConfig struct {
	LectureRate   float64
	TutorialRate  float64
	Currency      string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	LoaderWorkers int
}

// SubmitConfig points at the backend receiving the final form post.
type SubmitConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// TelemetryConfig enables OTLP trace export.
type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
	Insecure     bool
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
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

	source := strings.ToLower(strings.TrimSpace(v.GetString("CATALOG_SOURCE")))
	if source != CatalogSourceRemote {
		source = CatalogSourceLocal
	}
	cfg.Catalog = CatalogConfig{
		Source:         source,
		Endpoint:       v.GetString("CATALOG_ENDPOINT"),
		Timeout:        parseDuration(v.GetString("CATALOG_TIMEOUT"), 15*time.Second),
		ValidateSchema: v.GetBool("CATALOG_VALIDATE_SCHEMA"),
		CacheEnabled:   v.GetBool("CATALOG_CACHE_ENABLED"),
		CacheTTL:       parseDuration(v.GetString("CATALOG_CACHE_TTL"), 10*time.Minute),
	}

	workers := v.GetInt("WIZARD_LOADER_WORKERS")
	if workers <= 0 {
		workers = 2
	}
	cfg.Wizard = WizardConfig{
		LectureRate:   v.GetFloat64("WIZARD_LECTURE_RATE"),
		TutorialRate:  v.GetFloat64("WIZARD_TUTORIAL_RATE"),
		Currency:      v.GetString("WIZARD_CURRENCY"),
		SessionTTL:    parseDuration(v.GetString("WIZARD_SESSION_TTL"), 2*time.Hour),
		SweepInterval: parseDuration(v.GetString("WIZARD_SWEEP_INTERVAL"), 5*time.Minute),
		LoaderWorkers: workers,
	}

	cfg.Submit = SubmitConfig{
		Endpoint: v.GetString("SUBMIT_ENDPOINT"),
		Timeout:  parseDuration(v.GetString("SUBMIT_TIMEOUT"), 30*time.Second),
	}

	cfg.Telemetry = TelemetryConfig{
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		Insecure:     v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
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
	v.SetDefault("DB_NAME", "pedago")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CATALOG_SOURCE", CatalogSourceLocal)
	v.SetDefault("CATALOG_ENDPOINT", "http://localhost:8080/api/v1/precontrat/classes/{id}/modules")
	v.SetDefault("CATALOG_TIMEOUT", "15s")
	v.SetDefault("CATALOG_VALIDATE_SCHEMA", true)
	v.SetDefault("CATALOG_CACHE_ENABLED", true)
	v.SetDefault("CATALOG_CACHE_TTL", "10m")

	v.SetDefault("WIZARD_LECTURE_RATE", 10000)
	v.SetDefault("WIZARD_TUTORIAL_RATE", 8000)
	v.SetDefault("WIZARD_CURRENCY", "FCFA")
	v.SetDefault("WIZARD_SESSION_TTL", "2h")
	v.SetDefault("WIZARD_SWEEP_INTERVAL", "5m")
	v.SetDefault("WIZARD_LOADER_WORKERS", 2)

	v.SetDefault("SUBMIT_ENDPOINT", "http://localhost:8000/gestion/precontrats/nouveau/")
	v.SetDefault("SUBMIT_TIMEOUT", "30s")

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "pedago-admin")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
}

// isMissingFile reports a .env that does not exist; viper surfaces it as a
// path error rather than ConfigFileNotFoundError when SetConfigFile is used.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
