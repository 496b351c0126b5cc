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
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Engine   EngineConfig
	Oracle   OracleConfig
	Runs     RunsConfig
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

// JWTConfig guards mutating endpoints with a shared-secret bearer token.
type JWTConfig struct {
	Enabled bool
	Secret  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig holds the repair-loop policy constants. The cap and tolerance
// are tuning choices, not fundamental constraints, so they stay configurable.
type EngineConfig struct {
	MaxRepairIterations   int
	DistributionTolerance float64
}

// OracleConfig selects and tunes the external candidate oracle. An empty
// BaseURL falls back to the built-in heuristic backend.
type OracleConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RunsConfig governs asynchronous run execution and run caching.
type RunsConfig struct {
	AsyncEnabled      bool
	CacheTTL          time.Duration
	WorkerConcurrency int
	WorkerRetries     int
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
		Enabled: v.GetBool("ENABLE_AUTH"),
		Secret:  v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		MaxRepairIterations:   v.GetInt("ENGINE_MAX_REPAIR_ITERATIONS"),
		DistributionTolerance: v.GetFloat64("ENGINE_DISTRIBUTION_TOLERANCE"),
	}

	cfg.Oracle = OracleConfig{
		BaseURL: v.GetString("ORACLE_BASE_URL"),
		Timeout: parseDuration(v.GetString("ORACLE_TIMEOUT"), 60*time.Second),
	}

	cfg.Runs = RunsConfig{
		AsyncEnabled:      v.GetBool("ENABLE_ASYNC_RUNS"),
		CacheTTL:          parseDuration(v.GetString("RUN_CACHE_TTL"), 10*time.Minute),
		WorkerConcurrency: v.GetInt("RUN_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("RUN_WORKER_RETRIES"),
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
	v.SetDefault("DB_NAME", "timetable_engine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_AUTH", false)
	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENGINE_MAX_REPAIR_ITERATIONS", 3)
	v.SetDefault("ENGINE_DISTRIBUTION_TOLERANCE", 2)

	v.SetDefault("ORACLE_BASE_URL", "")
	v.SetDefault("ORACLE_TIMEOUT", "60s")

	v.SetDefault("ENABLE_ASYNC_RUNS", false)
	v.SetDefault("RUN_CACHE_TTL", "10m")
	v.SetDefault("RUN_WORKER_CONCURRENCY", 1)
	v.SetDefault("RUN_WORKER_RETRIES", 3)
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
