package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "http://localhost:4000", cfg.BaseURL)
	assert.Equal(t, 30, cfg.Shares.DefaultExpiryMinutes)
	assert.Equal(t, int64(20*1024*1024), cfg.Shares.MaxFileSizeBytes)
	assert.Equal(t, "uploads", cfg.Shares.UploadDir)
	assert.Equal(t, StorageDriverLocal, cfg.Shares.StorageDriver)
	assert.Equal(t, time.Minute, cfg.Shares.ReaperInterval)
	assert.Equal(t, 200, cfg.Shares.ReaperBatchSize)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "admin@linkvault.local", cfg.Admin.Email)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("BASE_URL", "https://vault.example.com/")
	v.Set("SHARE_DEFAULT_EXPIRY_MINUTES", 0)
	v.Set("SHARE_MAX_FILE_SIZE_MB", 5)
	v.Set("SHARE_STORAGE_DRIVER", "S3")
	v.Set("SHARE_REAPER_INTERVAL", "not-a-duration")
	v.Set("ADMIN_EMAIL", "  Root@Example.com ")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := fromViper(v)

	assert.Equal(t, "https://vault.example.com", cfg.BaseURL)
	assert.Equal(t, 30, cfg.Shares.DefaultExpiryMinutes)
	assert.Equal(t, int64(5*1024*1024), cfg.Shares.MaxFileSizeBytes)
	assert.Equal(t, StorageDriverS3, cfg.Shares.StorageDriver)
	assert.Equal(t, time.Minute, cfg.Shares.ReaperInterval)
	assert.Equal(t, "root@example.com", cfg.Admin.Email)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
