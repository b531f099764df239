package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers for share payloads.
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	BaseURL   string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Shares   SharesConfig
	S3       S3Config
	Admin    AdminConfig
	Cache    CacheConfig
	Jobs     JobsConfig
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SharesConfig drives share creation limits and the expiry reaper.
type SharesConfig struct {
	DefaultExpiryMinutes int
	MaxFileSizeBytes     int64
	UploadDir            string
	StorageDriver        string
	ReaperInterval       time.Duration
	ReaperBatchSize      int
}

// S3Config points the payload store at an S3 compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	ForcePathStyle  bool
}

// AdminConfig seeds the administrator account on boot.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

type CacheConfig struct {
	StatsTTL time.Duration
}

// JobsConfig tunes the background retry queue.
type JobsConfig struct {
	Workers    int
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
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
	cfg.BaseURL = strings.TrimRight(v.GetString("BASE_URL"), "/")

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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	expiryMinutes := v.GetInt("SHARE_DEFAULT_EXPIRY_MINUTES")
	if expiryMinutes <= 0 {
		expiryMinutes = 30
	}
	maxFileMB := v.GetInt64("SHARE_MAX_FILE_SIZE_MB")
	if maxFileMB <= 0 {
		maxFileMB = 20
	}
	batchSize := v.GetInt("SHARE_REAPER_BATCH_SIZE")
	if batchSize <= 0 {
		batchSize = 200
	}
	cfg.Shares = SharesConfig{
		DefaultExpiryMinutes: expiryMinutes,
		MaxFileSizeBytes:     maxFileMB * 1024 * 1024,
		UploadDir:            v.GetString("SHARE_UPLOAD_DIR"),
		StorageDriver:        strings.ToLower(v.GetString("SHARE_STORAGE_DRIVER")),
		ReaperInterval:       parseDuration(v.GetString("SHARE_REAPER_INTERVAL"), time.Minute),
		ReaperBatchSize:      batchSize,
	}

	cfg.S3 = S3Config{
		Bucket:          v.GetString("S3_BUCKET"),
		Region:          v.GetString("S3_REGION"),
		Endpoint:        v.GetString("S3_ENDPOINT"),
		AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
		SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		Prefix:          v.GetString("S3_PREFIX"),
		ForcePathStyle:  v.GetBool("S3_FORCE_PATH_STYLE"),
	}

	cfg.Admin = AdminConfig{
		Email:    strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
		Password: v.GetString("ADMIN_PASSWORD"),
		Name:     v.GetString("ADMIN_NAME"),
	}

	cfg.Cache = CacheConfig{
		StatsTTL: parseDuration(v.GetString("CACHE_STATS_TTL"), time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), 5*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 4000)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("BASE_URL", "http://localhost:4000")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "linkvault")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SHARE_DEFAULT_EXPIRY_MINUTES", 30)
	v.SetDefault("SHARE_MAX_FILE_SIZE_MB", 20)
	v.SetDefault("SHARE_UPLOAD_DIR", "uploads")
	v.SetDefault("SHARE_STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("SHARE_REAPER_INTERVAL", "60s")
	v.SetDefault("SHARE_REAPER_BATCH_SIZE", 200)

	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "shares/")
	v.SetDefault("S3_FORCE_PATH_STYLE", false)

	v.SetDefault("ADMIN_EMAIL", "admin@linkvault.local")
	v.SetDefault("ADMIN_PASSWORD", "admin12345")
	v.SetDefault("ADMIN_NAME", "Admin")

	v.SetDefault("CACHE_STATS_TTL", "60s")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "5s")
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
