package config

import (
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DataDirEnv       = "IDEAL_DATA_DIR"
	AdminEmailEnv    = "IDEAL_ADMIN_EMAIL"
	AdminPasswordEnv = "IDEAL_ADMIN_PASSWORD"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port    string
	DataDir string

	DBDriver    string
	PostgresURI string
	RedisAddr   string

	ResumeBucket   string
	MaxUploadBytes int64

	AdminEmail    string
	AdminPassword string

	AdminTokenSecret []byte
	AdminTokenTTL    time.Duration
	GeneratedSecret  bool
	PasswordScheme   string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DataDir:        getEnv(DataDirEnv, "data"),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		RedisAddr:      firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),
		ResumeBucket:   getEnv("RESUME_BUCKET", ""),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
		AdminEmail:     strings.TrimSpace(getEnv(AdminEmailEnv, "")),
		AdminPassword:  strings.TrimSpace(getEnv(AdminPasswordEnv, "")),
		AdminTokenTTL:  getEnvAsDuration("ADMIN_TOKEN_TTL", 2*time.Hour),
		PasswordScheme: getEnv("PASSWORD_SCHEME", "bcrypt"),
	}

	dir, err := filepath.Abs(expandHome(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dir

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.PostgresURI == "" {
			return nil, errors.New("POSTGRES_URI environment variable is not set")
		}
	default:
		return nil, errors.New("DB_DRIVER must be sqlite or postgres")
	}

	if secret := getEnv("ADMIN_TOKEN_SECRET", ""); secret != "" {
		cfg.AdminTokenSecret = []byte(secret)
	} else {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		cfg.AdminTokenSecret = key
		cfg.GeneratedSecret = true
	}

	return cfg, nil
}

func (c *Config) DatabasePath() string { return filepath.Join(c.DataDir, "site.db") }

func (c *Config) UploadsDir() string { return filepath.Join(c.DataDir, "uploads") }

// AdminConfigured reports whether an admin account should be seeded.
func (c *Config) AdminConfigured() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := getEnv(k, ""); v != "" {
			return v
		}
	}
	return ""
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := getEnv(key, ""); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := getEnv(key, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
