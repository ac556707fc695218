package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rtodocs/internal/model"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("STORAGE_DRIVER", "LOCAL")
	t.Setenv("UPLOAD_MAX_BYTES", "1024")
	t.Setenv("UPLOAD_ALLOWED_MIME", "application/pdf, image/png")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "uploads", cfg.Storage.LocalDir)
	assert.Equal(t, int64(1024), cfg.Upload.MaxBytes)
	assert.Equal(t, []string{"application/pdf", "image/png"}, cfg.Upload.AllowedMIMETypes)
	assert.Equal(t, []string{"AADHAAR", "PHOTO", "ADDRESS_PROOF"}, cfg.Upload.FallbackTypes)
	assert.Equal(t, 300, cfg.Redis.ListTTLSec)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("UPLOAD_MAX_BYTES", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("UPLOAD_ALLOWED_MIME", "")

	cfg := Load()

	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxBytes)
	assert.Equal(t, "minio", cfg.Storage.Driver)
	assert.Equal(t, []string{"image/jpeg", "image/png", "application/pdf"}, cfg.Upload.AllowedMIMETypes)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	t.Setenv(key, "value")

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	t.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	t.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	t.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	t.Setenv(key, "")
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	t.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))
	assert.Equal(t, int64(123), getEnvInt64(key, 0))

	t.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))
	assert.Equal(t, int64(10), getEnvInt64(key, 10))

	t.Setenv(key, "")
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvList(t *testing.T) {
	key := "TEST_LIST_VAR"
	def := []string{"a"}

	t.Setenv(key, " x , ,y ")
	assert.Equal(t, []string{"x", "y"}, getEnvList(key, def))

	t.Setenv(key, " , ")
	assert.Equal(t, def, getEnvList(key, def))

	t.Setenv(key, "")
	assert.Equal(t, def, getEnvList(key, def))
}

func validConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{Driver: StorageLocal, LocalDir: "uploads"},
		Upload:  UploadConfig{MaxBytes: 1024},
		Auth:    AuthConfig{JWTSecret: "s3cret"},
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(c *AppConfig)
		wantErr []string
	}{
		"valid local": {mutate: func(c *AppConfig) {}},
		"valid minio": {mutate: func(c *AppConfig) {
			c.Storage.Driver = StorageMinIO
			c.MinIO = MinIOConfig{Endpoint: "minio:9000", Bucket: "documents"}
		}},
		"missing secret": {
			mutate:  func(c *AppConfig) { c.Auth.JWTSecret = "" },
			wantErr: []string{"JWT_SECRET is required"},
		},
		"minio without bucket": {
			mutate:  func(c *AppConfig) { c.Storage.Driver = StorageMinIO; c.MinIO.Endpoint = "minio:9000" },
			wantErr: []string{"MINIO_BUCKET"},
		},
		"unknown driver": {
			mutate:  func(c *AppConfig) { c.Storage.Driver = "gcs" },
			wantErr: []string{`unknown STORAGE_DRIVER "gcs"`},
		},
		"redis without ttl": {
			mutate:  func(c *AppConfig) { c.Redis = RedisConfig{Addr: "redis:6379"} },
			wantErr: []string{"REDIS_LIST_TTL_SEC"},
		},
		"unknown fallback types": {
			mutate:  func(c *AppConfig) { c.Upload.FallbackTypes = []string{"aadhaar", "PASPORT", "Photo", "DL"} },
			wantErr: []string{"REVIEW_FALLBACK_TYPES has unknown document types: PASPORT, DL"},
		},
		"all problems reported together": {
			mutate: func(c *AppConfig) {
				c.Auth.JWTSecret = ""
				c.Upload.MaxBytes = 0
				c.Storage.LocalDir = ""
			},
			wantErr: []string{"JWT_SECRET", "UPLOAD_MAX_BYTES must be positive, got 0", "STORAGE_LOCAL_DIR"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestRedisListTTL(t *testing.T) {
	assert.Equal(t, 90*time.Second, RedisConfig{ListTTLSec: 90}.ListTTL())
}

func TestReviewFallbackTypes(t *testing.T) {
	u := UploadConfig{FallbackTypes: []string{"aadhaar", " Photo ", "ADDRESS_PROOF"}}
	assert.Equal(t, []model.DocumentType{model.DocAadhaar, model.DocPhoto, model.DocAddressProof}, u.ReviewFallbackTypes())
	assert.Empty(t, UploadConfig{}.ReviewFallbackTypes())
}
