package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mrlokans/gatekeeper/internal/audit"
	"github.com/mrlokans/gatekeeper/internal/auth"
	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/database"
	auditrepo "github.com/mrlokans/gatekeeper/internal/database/audit"
	"github.com/mrlokans/gatekeeper/internal/guard"
	http_controllers "github.com/mrlokans/gatekeeper/internal/http"
	"github.com/mrlokans/gatekeeper/internal/notify"
	"github.com/mrlokans/gatekeeper/internal/scheduler"
	"github.com/mrlokans/gatekeeper/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[HTTP] Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 sends SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before tearing down what they depend on
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// csrfSecret derives the CSRF key from the configured session secret, or
// generates one that lasts until restart.
func csrfSecret(sessionSecret string) ([]byte, error) {
	if sessionSecret != "" {
		secret, err := hex.DecodeString(sessionSecret)
		if err != nil {
			// Not hex, use as raw bytes
			return []byte(sessionSecret), nil
		}
		return secret, nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("[AUTH] Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(generated)
}

// Run wires every component from cfg and serves until interrupted.
func Run(cfg *config.Config, version string) error {
	if err := cfg.Auth.Mode.Validate(); err != nil {
		return err
	}

	log.Printf("Starting Gatekeeper v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))

	// Initialize task queue if enabled
	var queue scheduler.Enqueuer
	var taskClient *tasks.Client
	taskCtx, taskCtxCancel := context.WithCancel(context.Background())
	defer taskCtxCancel()

	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(tasks.NewCleanupAuditEventsQueue(auditService))
		go taskClient.Start(taskCtx)
		queue = taskClient
	}

	cleanupScheduler := scheduler.NewAuditCleanupScheduler(queue, auditService, cfg.Audit)
	if err := cleanupScheduler.Start(taskCtx); err != nil {
		return fmt.Errorf("failed to start audit cleanup scheduler: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	routerCfg := http_controllers.RouterConfig{
		Database:     db,
		AuditService: auditService,
		Auth:         cfg.Auth,
		Routes:       cfg.Routes,
		Support:      cfg.Support,
		UI:           cfg.UI,
		CORS:         cfg.CORS,
		Metrics:      cfg.Metrics,
		GuardMetrics: guard.NewMetrics(registry),
		Gatherer:     registry,
		Version:      version,
	}

	var authController *auth.AuthController
	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("[AUTH] Authentication mode: local")

		authService := auth.NewService(db.DB, cfg.Auth)

		sqlDB, err := db.SQL()
		if err != nil {
			return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
		}
		sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			return fmt.Errorf("failed to initialize session manager: %w", err)
		}

		secret, err := csrfSecret(cfg.Auth.SessionSecret)
		if err != nil {
			return fmt.Errorf("failed to generate CSRF secret: %w", err)
		}

		notifier := notify.New(sessionManager.SessionManager)
		authController = auth.NewAuthController(authService, sessionManager, notifier, auditService, auth.ControllerConfig{
			Auth:          cfg.Auth,
			Routes:        cfg.Routes,
			Support:       cfg.Support,
			TemplatesPath: cfg.UI.TemplatesPath,
		})

		routerCfg.AuthService = authService
		routerCfg.SessionManager = sessionManager
		routerCfg.Resolver = auth.NewResolver(authService, sessionManager, cfg.Auth)
		routerCfg.AuthController = authController
		routerCfg.Notifier = notifier
		routerCfg.CSRFSecret = secret

		if hasUsers, _ := authService.HasUsers(); !hasUsers {
			log.Printf("[AUTH] No users found. Visit %s to create an administrator account.", auth.RegisterPath)
		}
	} else {
		log.Printf("[AUTH] Authentication mode: none (no authentication required)")
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		cleanupScheduler.Stop()
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		taskCtxCancel()
		if authController != nil {
			authController.Stop()
		}
		auditService.Wait()
	}

	Serve(router, cfg, onShutdown)
	return nil
}
