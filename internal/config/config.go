package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `env:"DB_HOST"`
	Port               string `env:"DB_PORT" env-default:"5432"`
	User               string `env:"DB_USER"`
	Password           string `env:"DB_PASSWORD"`
	Name               string `env:"DB_NAME"`
	SSLMode            string `env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns       int    `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns       int    `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetimeSec int    `env:"DB_CONN_MAX_LIFETIME_SEC" env-default:"300"`
	AutoMigrate        bool   `env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	UseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
}

// JWTConfig holds the settings used to verify caller identity tokens.
type JWTConfig struct {
	Secret string `env:"JWT_SECRET"`
	Issuer string `env:"JWT_ISSUER" env-default:"docrepo"`
	// TTLMin only applies to tokens this service issues (cmd/token).
	TTLMin int    `env:"JWT_TTL_MIN" env-default:"60"`
}

// RedisConfig holds the master data cache settings. An empty Addr disables caching.
type RedisConfig struct {
	Addr        string `env:"REDIS_ADDR"`
	Password    string `env:"REDIS_PASSWORD"`
	DB          int    `env:"REDIS_DB" env-default:"0"`
	CacheTTLSec int    `env:"CACHE_TTL_SEC" env-default:"300"`
}

// LogConfig controls the zap logger. A non-empty File enables rotation to that path.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" env-default:"info"`
	JSON       bool   `env:"LOG_JSON" env-default:"true"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" env-default:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" env-default:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" env-default:"14"`
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxBytes int64 `env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
}

// RateLimitConfig configures the global token bucket. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" env-default:"200"`
	Burst int     `env:"RATE_LIMIT_BURST" env-default:"400"`
}

// JanitorConfig schedules the storage orphan sweep. An empty Schedule disables it.
type JanitorConfig struct {
	Schedule  string `env:"JANITOR_SCHEDULE" env-default:"@every 5m"`
	BatchSize int    `env:"JANITOR_BATCH_SIZE" env-default:"50"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	// AppHost is the default host shown in the Swagger document.
	AppHost string `env:"APP_HOST" env-default:"localhost:8080"`
	// AppSchemes are the schemes advertised in the Swagger document.
	AppSchemes []string `env:"APP_SCHEMES" env-default:"http" env-separator:","`
	Port       string   `env:"PORT" env-default:"8080"`
	Database   DatabaseConfig
	MinIO      MinIOConfig
	JWT        JWTConfig
	Redis      RedisConfig
	Log        LogConfig
	Upload     UploadConfig
	RateLimit  RateLimitConfig
	Janitor    JanitorConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, nil
}
