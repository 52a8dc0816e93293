package http

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrlokans/gatekeeper/internal/audit"
	"github.com/mrlokans/gatekeeper/internal/auth"
	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/database"
	"github.com/mrlokans/gatekeeper/internal/guard"
	"github.com/mrlokans/gatekeeper/internal/notify"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database     *database.Database
	AuditService *audit.Service

	// Authentication. AuthController is nil when auth is disabled.
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	Resolver       *auth.Resolver
	AuthController *auth.AuthController
	Notifier       *notify.Notifier
	CSRFSecret     []byte

	// Configuration sections
	Auth    config.Auth
	Routes  config.Routes
	Support config.Support
	UI      config.UI
	CORS    config.CORS
	Metrics config.Metrics

	// Guard decision counters and the registry /metrics serves.
	// A nil Gatherer falls back to the default prometheus registry.
	GuardMetrics *guard.Metrics
	Gatherer     prometheus.Gatherer

	// Application info
	Version string
}

func (cfg RouterConfig) destinations() guard.Destinations {
	dest := guard.DefaultDestinations()
	if cfg.Routes.LoginPath != "" {
		dest.Login = cfg.Routes.LoginPath
	}
	if cfg.Routes.HomePath != "" {
		dest.Home = cfg.Routes.HomePath
	}
	return dest
}
