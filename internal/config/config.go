package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rtodocs/internal/model"
)

// DatabaseConfig is the PostgreSQL connection and pool setup.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	AutoMigrate        bool
}

const (
	StorageMinIO = "minio"
	StorageLocal = "local"
)

// StorageConfig selects the blob backend. LocalDir is read only by the local driver.
type StorageConfig struct {
	Driver   string
	LocalDir string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// UploadConfig bounds what the document registry accepts.
type UploadConfig struct {
	MaxBytes         int64
	AllowedMIMETypes []string
	// FallbackTypes are the profile document types shown for a DL application with no documents of its own.
	FallbackTypes []string
}

// ReviewFallbackTypes returns FallbackTypes as document types, upper-cased. Validate rejects unknown names.
func (u UploadConfig) ReviewFallbackTypes() []model.DocumentType {
	out := make([]model.DocumentType, 0, len(u.FallbackTypes))
	for _, name := range u.FallbackTypes {
		out = append(out, normalizeDocumentType(name))
	}
	return out
}

func normalizeDocumentType(name string) model.DocumentType {
	return model.DocumentType(strings.ToUpper(strings.TrimSpace(name)))
}

type AuthConfig struct {
	JWTSecret string
}

// RedisConfig configures the optional document list cache. An empty Addr disables it.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	ListTTLSec int
}

// ListTTL is how long a cached per-user document list stays valid.
func (r RedisConfig) ListTTL() time.Duration {
	return time.Duration(r.ListTTLSec) * time.Second
}

type AppConfig struct {
	AppHost  string
	Port     string
	Timezone string
	Database DatabaseConfig
	Storage  StorageConfig
	MinIO    MinIOConfig
	Upload   UploadConfig
	Auth     AuthConfig
	Redis    RedisConfig
}

// Load reads the environment. Import github.com/joho/godotenv/autoload to also pick up a .env file;
// variables already set in the process win.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(getEnv("STORAGE_DRIVER", StorageMinIO)),
			LocalDir: getEnv("STORAGE_LOCAL_DIR", "uploads"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Upload: UploadConfig{
			MaxBytes:         getEnvInt64("UPLOAD_MAX_BYTES", 5<<20),
			AllowedMIMETypes: getEnvList("UPLOAD_ALLOWED_MIME", []string{"image/jpeg", "image/png", "application/pdf"}),
			FallbackTypes:    getEnvList("REVIEW_FALLBACK_TYPES", []string{"AADHAAR", "PHOTO", "ADDRESS_PROOF"}),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			ListTTLSec: getEnvInt("REDIS_LIST_TTL_SEC", 300),
		},
	}
}

// Validate reports every setting the service cannot start without.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes))
	}
	var unknown []string
	for _, name := range c.Upload.FallbackTypes {
		if !normalizeDocumentType(name).Valid() {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		errs = append(errs, fmt.Errorf("REVIEW_FALLBACK_TYPES has unknown document types: %s", strings.Join(unknown, ", ")))
	}
	switch c.Storage.Driver {
	case StorageMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio driver"))
		}
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			errs = append(errs, errors.New("STORAGE_LOCAL_DIR is required for the local driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Redis.Addr != "" && c.Redis.ListTTLSec <= 0 {
		errs = append(errs, errors.New("REDIS_LIST_TTL_SEC must be positive when REDIS_ADDR is set"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvParsed falls back to def when the variable is unset or does not parse.
func getEnvParsed[T any](key string, def T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func getEnvBool(key string, def bool) bool {
	return getEnvParsed(key, def, strconv.ParseBool)
}

func getEnvInt(key string, def int) int {
	return getEnvParsed(key, def, strconv.Atoi)
}

func getEnvInt64(key string, def int64) int64 {
	return getEnvParsed(key, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, def []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
