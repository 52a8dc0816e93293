package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Every request is treated as signed in
	AuthModeLocal AuthMode = "local" // Local user database with sessions (default)
)

// Validate rejects modes other than none and local.
func (m AuthMode) Validate() error {
	switch m {
	case AuthModeNone, AuthModeLocal:
		return nil
	default:
		return fmt.Errorf("unknown AUTH_MODE %q (expected %q or %q)", string(m), AuthModeNone, AuthModeLocal)
	}
}

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Auth
		Routes
		Support
		Audit
		Tasks
		CORS
		Metrics
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Auth struct {
		Mode              AuthMode
		SessionSecret     string
		SessionLifetime   time.Duration
		TokenExpiry       time.Duration
		BcryptCost        int
		SecureCookies     bool // Set to false for local dev without HTTPS
		AllowRegistration bool // Self-service sign up once the first user exists

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	// Routes names the two guard destinations.
	Routes struct {
		LoginPath string
		HomePath  string
	}
	// Support holds the contact strings shown on auth pages and /support.
	Support struct {
		Email string
		Phone string
		URL   string
		Hours string
	}
	Audit struct {
		RetentionDays   int
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	CORS struct {
		AllowedOrigins []string
	}
	Metrics struct {
		Enabled bool
		Path    string
	}
)

// loadEnvFiles preloads .env.local and .env into the process environment.
// Variables that are already set win.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		_ = godotenv.Load(name)
	}
}

func NewConfig() *Config {
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Auth defaults
	v.SetDefault("auth_mode", "local")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_allow_registration", true) // Open sign up
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Guard destinations
	v.SetDefault("route_login_path", DefaultLoginPath)
	v.SetDefault("route_home_path", DefaultHomePath)

	// Support contact
	v.SetDefault("support_email", "support@example.com")
	v.SetDefault("support_phone", "")
	v.SetDefault("support_url", "")
	v.SetDefault("support_hours", "Mon-Fri 9:00-17:00 UTC")

	// Audit defaults
	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_path", "/metrics")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Auth: Auth{
			Mode:              AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:     v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:   v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:       v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:        v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:     v.GetBool("AUTH_SECURE_COOKIES"),
			AllowRegistration: v.GetBool("AUTH_ALLOW_REGISTRATION"),
			MaxLoginAttempts:  v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:   v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:   v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Routes: Routes{
			LoginPath: v.GetString("ROUTE_LOGIN_PATH"),
			HomePath:  v.GetString("ROUTE_HOME_PATH"),
		},
		Support: Support{
			Email: v.GetString("SUPPORT_EMAIL"),
			Phone: v.GetString("SUPPORT_PHONE"),
			URL:   v.GetString("SUPPORT_URL"),
			Hours: v.GetString("SUPPORT_HOURS"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}
}
