package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	LogLevel string
	Reset    ResetConfig
	Uploads  UploadConfig
	Mail     MailConfig
	Session  SessionConfig
	Admin    AdminConfig
	Jobs     JobsConfig
}

// ResetConfig controls the password-reset verification code.
type ResetConfig struct {
	CodeTimeout     time.Duration
	MaxRequests     int
	RateLimitWindow time.Duration
}

type UploadConfig struct {
	Dir               string
	AllowedExtensions []string
	MaxBytes          int64
	PublicPrefix      string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether an SMTP server is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// AdminConfig is the bootstrap admin account created by cmd/setup.
type AdminConfig struct {
	Username string
	Email    string
	Password string
	Coins    int64
	Money    string
}

type JobsConfig struct {
	LedgerRepairSpec string
}

var bindings = map[string]string{
	"port":      "PORT",
	"log.level": "LOG_LEVEL",

	"database.host":           "DATABASE_HOST",
	"database.port":           "DATABASE_PORT",
	"database.user":           "DATABASE_USER",
	"database.password":       "DATABASE_PASSWORD",
	"database.name":           "DATABASE_NAME",
	"database.ssl_mode":       "DATABASE_SSL_MODE",
	"database.migrations_dir": "DATABASE_MIGRATIONS_DIR",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key":   "JWT_SECRET_KEY",
	"jwt.expiry_hours": "JWT_EXPIRY_HOURS",

	"argon2.time":        "ARGON2_TIME",
	"argon2.memory":      "ARGON2_MEMORY",
	"argon2.threads":     "ARGON2_THREADS",
	"argon2.key_length":  "ARGON2_KEY_LENGTH",
	"argon2.salt_length": "ARGON2_SALT_LENGTH",

	"mail.host":     "MAIL_HOST",
	"mail.port":     "MAIL_PORT",
	"mail.username": "MAIL_USERNAME",
	"mail.password": "MAIL_PASSWORD",
	"mail.from":     "MAIL_FROM",

	"reset.code_timeout":      "RESET_CODE_TIMEOUT",
	"reset.max_requests":      "RESET_MAX_REQUESTS",
	"reset.rate_limit_window": "RESET_RATE_LIMIT_WINDOW",

	"uploads.dir":                "UPLOADS_DIR",
	"uploads.allowed_extensions": "UPLOADS_ALLOWED_EXTENSIONS",
	"uploads.max_bytes":          "UPLOADS_MAX_BYTES",

	"session.cookie_name": "SESSION_COOKIE_NAME",
	"session.ttl":         "SESSION_TTL",
	"session.secure":      "SESSION_SECURE",

	"admin.username": "ADMIN_USERNAME",
	"admin.email":    "ADMIN_EMAIL",
	"admin.password": "ADMIN_PASSWORD",

	"jobs.ledger_repair": "JOBS_LEDGER_REPAIR",
}

// SetDefaults registers every default value. It is safe to call more than once.
func SetDefaults() {
	viper.SetDefault("port", "8080")
	viper.SetDefault("log.level", "info")

	viper.SetDefault("database.migrations_dir", "./migrations")

	viper.SetDefault("jwt.expiry_hours", 24)

	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	viper.SetDefault("mail.port", 587)

	viper.SetDefault("reset.code_timeout", 10*time.Minute)
	viper.SetDefault("reset.max_requests", 5)
	viper.SetDefault("reset.rate_limit_window", time.Hour)

	viper.SetDefault("uploads.dir", "static/ads_images")
	viper.SetDefault("uploads.allowed_extensions", "png,jpg,jpeg,gif")
	viper.SetDefault("uploads.max_bytes", 16*1024*1024)

	viper.SetDefault("session.cookie_name", "tiptop_session")
	viper.SetDefault("session.ttl", 24*time.Hour)
	viper.SetDefault("session.secure", false)

	viper.SetDefault("admin.username", "admin")
	viper.SetDefault("admin.email", "admin@tiptop.com")
	viper.SetDefault("admin.password", "admin123")

	viper.SetDefault("jobs.ledger_repair", "@every 1h")
}

// Load reads .env (when present) and the environment into viper and returns
// the typed application settings.
func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	for key, env := range bindings {
		viper.BindEnv(key, env)
	}
	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	return FromViper()
}

// FromViper builds a Config from whatever is currently set in viper.
func FromViper() *Config {
	return &Config{
		Port:     viper.GetString("port"),
		LogLevel: viper.GetString("log.level"),
		Reset: ResetConfig{
			CodeTimeout:     viper.GetDuration("reset.code_timeout"),
			MaxRequests:     viper.GetInt("reset.max_requests"),
			RateLimitWindow: viper.GetDuration("reset.rate_limit_window"),
		},
		Uploads: UploadConfig{
			Dir:               viper.GetString("uploads.dir"),
			AllowedExtensions: splitList(viper.GetString("uploads.allowed_extensions")),
			MaxBytes:          viper.GetInt64("uploads.max_bytes"),
			PublicPrefix:      "/static/ads/",
		},
		Mail: MailConfig{
			Host:     viper.GetString("mail.host"),
			Port:     viper.GetInt("mail.port"),
			Username: viper.GetString("mail.username"),
			Password: viper.GetString("mail.password"),
			From:     viper.GetString("mail.from"),
		},
		Session: SessionConfig{
			CookieName: viper.GetString("session.cookie_name"),
			TTL:        viper.GetDuration("session.ttl"),
			Secure:     viper.GetBool("session.secure"),
		},
		Admin: AdminConfig{
			Username: viper.GetString("admin.username"),
			Email:    viper.GetString("admin.email"),
			Password: viper.GetString("admin.password"),
			Coins:    1000,
			Money:    "100.00",
		},
		Jobs: JobsConfig{
			LedgerRepairSpec: viper.GetString("jobs.ledger_repair"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, strings.TrimPrefix(part, "."))
		}
	}
	return out
}
