// Package config reads the portal's runtime configuration from the environment.
// Values may also come from a .env file loaded by LoadEnv at startup.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

const (
	defaultPort           = 5000
	defaultTokenTTL       = 30 * 24 * time.Hour
	defaultRequestTimeout = 30 * time.Second
	defaultRateLimit      = 30
)

// LoadEnv loads variables from the given .env files (or ./.env when none are given).
// Variables already present in the environment win. Missing files are not an error.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("PORTAL_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("PORTAL_DEBUG") == "true"
}

// GetEnvironment is reported by the health endpoint.
func GetEnvironment() string {
	if IsDebug() {
		return "development"
	}
	return "production"
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("PORTAL_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

func GetListen() string {
	return os.Getenv("PORTAL_LISTEN")
}

func GetPort() int {
	return getInt("PORTAL_PORT", defaultPort)
}

// GetJWTSecret returns the token signing secret. An empty value means the
// caller has to generate an ephemeral one.
func GetJWTSecret() string {
	return os.Getenv("PORTAL_JWT_SECRET")
}

func GetTokenTTL() time.Duration {
	return getDuration("PORTAL_TOKEN_TTL", defaultTokenTTL)
}

func GetRequestTimeout() time.Duration {
	return getDuration("PORTAL_REQUEST_TIMEOUT", defaultRequestTimeout)
}

// GetRateLimit returns the allowed public submissions per client per minute; 0 disables limiting.
func GetRateLimit() int {
	return getInt("PORTAL_RATE_LIMIT", defaultRateLimit)
}

// IsContactDegradedEnabled reports whether contact intake acknowledges
// submissions it could not persist instead of failing them.
func IsContactDegradedEnabled() bool {
	v := os.Getenv("PORTAL_CONTACT_DEGRADED")
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func GetAllowedOrigins() []string {
	raw := os.Getenv("PORTAL_ALLOWED_ORIGINS")
	if raw == "" {
		return []string{"http://localhost:5174", "http://localhost:3000"}
	}
	return splitList(raw)
}

// GetTrustedProxies lists the proxies whose forwarding headers are believed
// when resolving the client IP. Unset means none are trusted.
func GetTrustedProxies() []string {
	raw := os.Getenv("PORTAL_TRUSTED_PROXIES")
	if raw == "" {
		return nil
	}
	return splitList(raw)
}

func splitList(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetCertFile and GetKeyFile enable TLS when both are set.
func GetCertFile() string {
	return os.Getenv("PORTAL_CERT_FILE")
}

func GetKeyFile() string {
	return os.Getenv("PORTAL_KEY_FILE")
}

// SMTPConfig configures admin notification mail. Notifications are off when Host is empty.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}

func GetSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:     os.Getenv("PORTAL_SMTP_HOST"),
		Port:     getInt("PORTAL_SMTP_PORT", 587),
		User:     os.Getenv("PORTAL_SMTP_USER"),
		Password: os.Getenv("PORTAL_SMTP_PASSWORD"),
		From:     os.Getenv("PORTAL_SMTP_FROM"),
		To:       splitList(os.Getenv("PORTAL_NOTIFY_TO")),
	}
}

// GetRedisAddr returns the Redis server shared by all instances for rate
// limiting. Empty means per-process counters.
func GetRedisAddr() string {
	return os.Getenv("PORTAL_REDIS_ADDR")
}

func GetRedisPassword() string {
	return os.Getenv("PORTAL_REDIS_PASSWORD")
}

func GetRedisDB() int {
	return getInt("PORTAL_REDIS_DB", 0)
}

// GetAuditRetentionDays returns how long audit rows are kept; 0 keeps them forever.
func GetAuditRetentionDays() int {
	return getInt("PORTAL_AUDIT_RETENTION_DAYS", 90)
}
