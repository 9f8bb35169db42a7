package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Backend    BackendConfig
	Session    SessionConfig
	Document   DocumentConfig
	DB         DBConfig
	JWT        JWTConfig
	Auth       AuthConfig
	S3         S3Config
	Archive    ArchiveConfig
	Audit      AuditConfig
	Log        LogConfig
	CORS       CORSConfig
	DevBackend DevBackendConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// BackendConfig addresses the OCR backend. BaseURL is used by the gateway
// itself; PublicURL is what browsers are told to use.
type BackendConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	PublicURL  string        `mapstructure:"public_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
	RateBurst  int           `mapstructure:"rate_burst"`
}

// SessionConfig holds review session settings.
type SessionConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
}

// DocumentConfig holds document ingestion settings.
type DocumentConfig struct {
	ReviewThreshold float64 `mapstructure:"review_threshold"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds operator token verification settings.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// AuthConfig toggles operator authentication on the API.
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// ArchiveConfig toggles archiving of exported workbooks.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// AuditConfig toggles persistence of the review audit log.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DevBackendConfig configures cmd/devbackend.
type DevBackendConfig struct {
	Port       string `mapstructure:"port"`
	StorageDir string `mapstructure:"storage_dir"`
}

// Load reads configuration from environment variables with the FORMSCAN_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FORMSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults. Writes must outlast the backend allowance.
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "310s")
	v.SetDefault("server.environment", "development")

	// Backend defaults
	v.SetDefault("backend.base_url", "http://127.0.0.1:8000")
	v.SetDefault("backend.public_url", "")
	v.SetDefault("backend.timeout", "300s")
	v.SetDefault("backend.rate_per_sec", 0)
	v.SetDefault("backend.rate_burst", 1)

	// Session defaults
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.reap_interval", "5m")

	v.SetDefault("document.review_threshold", 0.6)

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "formscan")
	v.SetDefault("db.password", "formscan_secret")
	v.SetDefault("db.name", "formscan_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "formscan")
	v.SetDefault("auth.enabled", false)

	// S3 / archive defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "formscan-exports")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "exports")

	v.SetDefault("audit.enabled", false)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Dev backend defaults
	v.SetDefault("devbackend.port", ":8000")
	v.SetDefault("devbackend.storage_dir", "storage/jobs")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":               "FORMSCAN_SERVER_PORT",
		"server.read_timeout":       "FORMSCAN_SERVER_READ_TIMEOUT",
		"server.write_timeout":      "FORMSCAN_SERVER_WRITE_TIMEOUT",
		"server.environment":        "FORMSCAN_SERVER_ENVIRONMENT",
		"backend.base_url":          "FORMSCAN_BACKEND_BASE_URL",
		"backend.public_url":        "FORMSCAN_BACKEND_PUBLIC_URL",
		"backend.timeout":           "FORMSCAN_BACKEND_TIMEOUT",
		"backend.rate_per_sec":      "FORMSCAN_BACKEND_RATE_PER_SEC",
		"backend.rate_burst":        "FORMSCAN_BACKEND_RATE_BURST",
		"session.ttl":               "FORMSCAN_SESSION_TTL",
		"session.reap_interval":     "FORMSCAN_SESSION_REAP_INTERVAL",
		"document.review_threshold": "FORMSCAN_DOCUMENT_REVIEW_THRESHOLD",
		"db.host":                   "FORMSCAN_DB_HOST",
		"db.port":                   "FORMSCAN_DB_PORT",
		"db.user":                   "FORMSCAN_DB_USER",
		"db.password":               "FORMSCAN_DB_PASSWORD",
		"db.name":                   "FORMSCAN_DB_NAME",
		"db.sslmode":                "FORMSCAN_DB_SSLMODE",
		"db.max_open":               "FORMSCAN_DB_MAX_OPEN",
		"db.max_idle":               "FORMSCAN_DB_MAX_IDLE",
		"jwt.secret":                "FORMSCAN_JWT_SECRET",
		"jwt.issuer":                "FORMSCAN_JWT_ISSUER",
		"auth.enabled":              "FORMSCAN_AUTH_ENABLED",
		"s3.region":                 "FORMSCAN_S3_REGION",
		"s3.bucket":                 "FORMSCAN_S3_BUCKET",
		"s3.endpoint":               "FORMSCAN_S3_ENDPOINT",
		"s3.access_key":             "FORMSCAN_S3_ACCESS_KEY",
		"s3.secret_key":             "FORMSCAN_S3_SECRET_KEY",
		"archive.enabled":           "FORMSCAN_ARCHIVE_ENABLED",
		"archive.prefix":            "FORMSCAN_ARCHIVE_PREFIX",
		"audit.enabled":             "FORMSCAN_AUDIT_ENABLED",
		"log.level":                 "FORMSCAN_LOG_LEVEL",
		"log.format":                "FORMSCAN_LOG_FORMAT",
		"cors.allowed_origins":      "FORMSCAN_CORS_ALLOWED_ORIGINS",
		"devbackend.port":           "FORMSCAN_DEVBACKEND_PORT",
		"devbackend.storage_dir":    "FORMSCAN_DEVBACKEND_STORAGE_DIR",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if FORMSCAN_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FORMSCAN_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}

	baseURL := strings.TrimRight(v.GetString("backend.base_url"), "/")
	publicURL := strings.TrimRight(v.GetString("backend.public_url"), "/")
	if publicURL == "" {
		publicURL = baseURL
	}
	cfg.Backend = BackendConfig{
		BaseURL:    baseURL,
		PublicURL:  publicURL,
		Timeout:    v.GetDuration("backend.timeout"),
		RatePerSec: v.GetFloat64("backend.rate_per_sec"),
		RateBurst:  v.GetInt("backend.rate_burst"),
	}
	cfg.Session = SessionConfig{
		TTL:          v.GetDuration("session.ttl"),
		ReapInterval: v.GetDuration("session.reap_interval"),
	}
	cfg.Document = DocumentConfig{
		ReviewThreshold: v.GetFloat64("document.review_threshold"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret: v.GetString("jwt.secret"),
		Issuer: v.GetString("jwt.issuer"),
	}
	cfg.Auth = AuthConfig{Enabled: v.GetBool("auth.enabled")}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Archive = ArchiveConfig{
		Enabled: v.GetBool("archive.enabled"),
		Prefix:  strings.Trim(v.GetString("archive.prefix"), "/"),
	}
	cfg.Audit = AuditConfig{Enabled: v.GetBool("audit.enabled")}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.DevBackend = DevBackendConfig{
		Port:       v.GetString("devbackend.port"),
		StorageDir: v.GetString("devbackend.storage_dir"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the gateway cannot run with.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("config: backend.base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("config: backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("config: backend.timeout must be positive")
	}
	if c.Document.ReviewThreshold < 0 || c.Document.ReviewThreshold > 1 {
		return fmt.Errorf("config: document.review_threshold must be within [0,1]")
	}
	if c.Auth.Enabled && c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required when auth is enabled")
	}
	return nil
}
