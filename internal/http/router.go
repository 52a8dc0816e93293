package http

import (
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrlokans/gatekeeper/internal/auth"
	"github.com/mrlokans/gatekeeper/internal/entities"
	"github.com/mrlokans/gatekeeper/internal/guard"
)

// hstsMaxAge is one year, the minimum browsers accept for preload lists.
const hstsMaxAge = 31536000

// loadTemplates parses the page templates. It returns nil when the directory
// holds none, in which case pages answer with JSON.
func loadTemplates(dir string) *template.Template {
	if dir == "" {
		return nil
	}

	pattern := filepath.Join(dir, "*.html")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		log.Printf("[HTTP] No page templates in %s, pages render as JSON", dir)
		return nil
	}

	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"subtract": func(a, b int) int {
			return a - b
		},
		"add": func(a, b int) int {
			return a + b
		},
	}

	return template.Must(template.New("").Funcs(funcMap).ParseFiles(matches...))
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.Auth.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(hstsMaxAge))
	}

	// Preflight requests carry no credentials, so CORS answers them before CSRF
	if corsMiddleware := APICORSMiddleware(cfg.CORS.AllowedOrigins); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.Auth.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
		router.Use(cfg.Notifier.Deliver())
	}

	tmpl := loadTemplates(cfg.UI.TemplatesPath)
	if tmpl != nil {
		router.SetHTMLTemplate(tmpl)
	}

	if cfg.UI.StaticPath != "" {
		router.Static("/static", cfg.UI.StaticPath)
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = auth.NewResolver(cfg.AuthService, cfg.SessionManager, cfg.Auth)
	}
	dest := cfg.destinations()
	guardOpts := []guard.Option{
		guard.WithDestinations(dest),
		guard.WithMetrics(cfg.GuardMetrics),
	}

	var users UserLookup
	if cfg.AuthService != nil {
		users = cfg.AuthService
	}
	pages := NewPagesController(users, cfg.Notifier, cfg.Support, tmpl != nil)

	// Public endpoints
	var db Pinger
	if cfg.Database != nil {
		db = cfg.Database
	}
	health := NewHealthController(db, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	router.GET("/support", pages.SupportPage)
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, dest.Home)
	})

	if cfg.Metrics.Enabled {
		gatherer := cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		metricsPath := cfg.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Sign-in pages are only reachable without a session; logout is reachable either way
	if cfg.AuthController != nil {
		authOnly := router.Group("", guard.AuthOnlyLayout(resolver, guardOpts...))
		cfg.AuthController.RegisterRoutes(authOnly, router)
	}

	// Everything below requires a session
	protected := router.Group("", guard.AccessGuard(resolver, guardOpts...), AuthContextMiddleware(cfg.Auth.Mode))
	protected.GET(dest.Home, pages.HomePage)
	protected.GET("/dashboard", pages.DashboardPage)
	protected.GET("/account", pages.AccountPage)

	api := protected.Group("/api")
	api.GET("/me", pages.Me)
	if cfg.AuthService != nil {
		tokenController := auth.NewAPITokenController(cfg.AuthService)
		api.POST("/auth/token", tokenController.GenerateToken)
		api.DELETE("/auth/token", tokenController.RevokeToken)
	}

	if cfg.AuditService != nil {
		auditController := NewAuditController(cfg.AuditService, tmpl != nil)
		requireAdmin := resolver.RequireRole(entities.UserRoleAdmin)
		protected.GET("/admin/audit", requireAdmin, auditController.AuditLogPage)
		api.GET("/admin/audit", requireAdmin, auditController.GetAuditEvents)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	})

	return router
}
