package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gatekeeper/internal/audit"
	"github.com/mrlokans/gatekeeper/internal/auth"
	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/database"
	auditrepo "github.com/mrlokans/gatekeeper/internal/database/audit"
	"github.com/mrlokans/gatekeeper/internal/entities"
	"github.com/mrlokans/gatekeeper/internal/guard"
	"github.com/mrlokans/gatekeeper/internal/notify"
)

const testPassword = "correct-horse-battery"

type routerFixture struct {
	router  *gin.Engine
	service *auth.Service
	audit   *audit.Service
}

// client replays cookies between requests the way a browser would.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (f *routerFixture) client(t *testing.T) *client {
	return &client{t: t, handler: f.router, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	cl.t.Helper()
	for _, cookie := range cl.cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	cl.handler.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(cl.cookies, cookie.Name)
			continue
		}
		cl.cookies[cookie.Name] = cookie
	}
	return w
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) login(username, from string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {testPassword}}
	if from != "" {
		form.Set(guard.FromParam, from)
	}
	req := httptest.NewRequest(http.MethodPost, config.DefaultLoginPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func setupRouter(t *testing.T, mutate func(*RouterConfig)) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.SQL()
	require.NoError(t, err)

	authCfg := config.Auth{
		Mode:             config.AuthModeLocal,
		BcryptCost:       4,
		SessionLifetime:  time.Hour,
		MaxLoginAttempts: 5,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}

	sessions, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)

	service := auth.NewService(db.DB, authCfg)
	notifier := notify.New(sessions.SessionManager)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	t.Cleanup(auditService.Wait)

	support := config.Support{Email: "help@example.com", Hours: "9-5"}
	controller := auth.NewAuthController(service, sessions, notifier, auditService, auth.ControllerConfig{
		Auth:    authCfg,
		Support: support,
	})
	t.Cleanup(controller.Stop)

	registry := prometheus.NewRegistry()
	cfg := RouterConfig{
		Database:       db,
		AuditService:   auditService,
		AuthService:    service,
		SessionManager: sessions,
		Resolver:       auth.NewResolver(service, sessions, authCfg),
		AuthController: controller,
		Notifier:       notifier,
		Auth:           authCfg,
		Support:        support,
		Metrics:        config.Metrics{Enabled: true, Path: "/metrics"},
		GuardMetrics:   guard.NewMetrics(registry),
		Gatherer:       registry,
		Version:        "test",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return &routerFixture{
		router:  NewRouter(cfg),
		service: service,
		audit:   auditService,
	}
}

func (f *routerFixture) createUser(t *testing.T, username string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := f.service.CreateUser(username, username+"@example.com", testPassword, role)
	require.NoError(t, err)
	return user
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRouter_PublicEndpoints(t *testing.T) {
	f := setupRouter(t, nil)
	cl := f.client(t)

	t.Run("health", func(t *testing.T) {
		w := cl.get("/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "test", decodeBody(t, w)["version"])
	})

	t.Run("ping", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, cl.get("/ping").Code)
	})

	t.Run("support renders contact details without a session", func(t *testing.T) {
		w := cl.get("/support")
		require.Equal(t, http.StatusOK, w.Code)

		supportData := decodeBody(t, w)["Support"].(map[string]any)
		assert.Equal(t, "help@example.com", supportData["Email"])
		assert.Equal(t, "9-5", supportData["Hours"])
	})

	t.Run("root redirects to home", func(t *testing.T) {
		w := cl.get("/")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, config.DefaultHomePath, w.Header().Get("Location"))
	})

	t.Run("every response carries a request id", func(t *testing.T) {
		w := cl.get("/ping")
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("unknown routes return JSON 404", func(t *testing.T) {
		w := cl.get("/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not found", decodeBody(t, w)["error"])
	})
}

func TestRouter_AccessGuardWithoutSession(t *testing.T) {
	f := setupRouter(t, nil)
	f.createUser(t, "alice", entities.UserRoleAdmin)

	for _, path := range []string{"/home", "/dashboard", "/account", "/admin/audit"} {
		t.Run(path, func(t *testing.T) {
			w := f.client(t).get(path)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/auth/login?from="+url.QueryEscape(path), w.Header().Get("Location"))
		})
	}

	t.Run("query string is kept in from", func(t *testing.T) {
		w := f.client(t).get("/dashboard?tab=usage")
		assert.Equal(t, "/auth/login?from=%2Fdashboard%3Ftab%3Dusage", w.Header().Get("Location"))
	})

	t.Run("api requests get 401 with the instruction", func(t *testing.T) {
		w := f.client(t).get("/api/me")
		require.Equal(t, http.StatusUnauthorized, w.Code)

		redirect := decodeBody(t, w)["redirect"].(map[string]any)
		assert.Equal(t, "/auth/login", redirect["destination"])
		assert.Equal(t, true, redirect["replace"])
		assert.Equal(t, "/api/me", redirect["state"].(map[string]any)["from"])
	})

	t.Run("htmx requests get HX-Redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("HX-Request", "true")
		w := f.client(t).do(req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "/auth/login?from=%2Fdashboard", w.Header().Get("HX-Redirect"))
	})
}

func TestRouter_SignInFlow(t *testing.T) {
	f := setupRouter(t, nil)
	f.createUser(t, "alice", entities.UserRoleAdmin)
	cl := f.client(t)

	w := cl.get("/auth/login?from=%2Fdashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/dashboard", decodeBody(t, w)["From"])

	w = cl.login("alice", "/dashboard")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = cl.get("/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "session", body["AuthType"])
	toasts := body["Toasts"].([]any)
	require.Len(t, toasts, 1)
	assert.Equal(t, "Welcome back, alice", toasts[0].(map[string]any)["message"])

	t.Run("toasts are delivered once", func(t *testing.T) {
		assert.Nil(t, decodeBody(t, cl.get("/home"))["Toasts"])
	})

	t.Run("sign-in pages redirect home while signed in", func(t *testing.T) {
		for _, path := range []string{"/auth/login", "/auth/register"} {
			w := cl.get(path)
			assert.Equal(t, http.StatusFound, w.Code, path)
			assert.Equal(t, "/home", w.Header().Get("Location"), path)
		}
	})

	t.Run("api identity", func(t *testing.T) {
		body := decodeBody(t, cl.get("/api/me"))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "admin", body["role"])
		assert.Equal(t, "authenticated", body["signal"])
	})

	t.Run("account page shows the user without secrets", func(t *testing.T) {
		w := cl.get("/account")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "PasswordHash")

		account := decodeBody(t, w)["Account"].(map[string]any)
		assert.Equal(t, "alice@example.com", account["email"])
		assert.Equal(t, false, account["has_api_token"])
	})

	t.Run("admin sees the audit log", func(t *testing.T) {
		f.audit.Wait()

		w := cl.get("/admin/audit")
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.EqualValues(t, 1, body["total"])
		event := body["data"].([]any)[0].(map[string]any)
		assert.Equal(t, audit.ActionLogin, event["action"])
		assert.NotEmpty(t, event["request_id"])
	})

	t.Run("logout ignores GET", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, cl.get(auth.LogoutPath).Code)
		assert.Equal(t, http.StatusOK, cl.get("/dashboard").Code)
	})

	t.Run("logout returns to the login page", func(t *testing.T) {
		w := cl.do(httptest.NewRequest(http.MethodPost, auth.LogoutPath, nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/auth/login", w.Header().Get("Location"))

		w = cl.get("/dashboard")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/auth/login?from=%2Fdashboard", w.Header().Get("Location"))
	})
}

func TestRouter_LoginIgnoresForeignFrom(t *testing.T) {
	f := setupRouter(t, nil)
	f.createUser(t, "alice", entities.UserRoleAdmin)

	for _, from := range []string{"https://evil.example", "//evil.example", "/\\evil.example", "/\t/evil.example", "/\n/evil.example", "/\r\n//evil.example"} {
		w := f.client(t).login("alice", from)
		assert.Equal(t, http.StatusFound, w.Code, from)
		assert.Equal(t, "/home", w.Header().Get("Location"), from)
	}
}

func TestRouter_AdminAuditRequiresRole(t *testing.T) {
	f := setupRouter(t, nil)
	f.createUser(t, "alice", entities.UserRoleAdmin)
	f.createUser(t, "bob", entities.UserRoleViewer)

	cl := f.client(t)
	require.Equal(t, http.StatusFound, cl.login("bob", "").Code)

	assert.Equal(t, http.StatusForbidden, cl.get("/admin/audit").Code)
	assert.Equal(t, http.StatusForbidden, cl.get("/api/admin/audit").Code)
	assert.Equal(t, http.StatusOK, cl.get("/dashboard").Code)
}

func TestRouter_BearerToken(t *testing.T) {
	f := setupRouter(t, nil)
	user := f.createUser(t, "alice", entities.UserRoleEditor)

	token, err := f.service.GenerateToken(user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.client(t).do(req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "bearer", body["auth_type"])

	req = httptest.NewRequest(http.MethodDelete, "/api/auth/token", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, f.client(t).do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, f.client(t).do(req).Code)
}

func TestRouter_MetricsCountDecisions(t *testing.T) {
	f := setupRouter(t, nil)
	f.createUser(t, "alice", entities.UserRoleAdmin)
	cl := f.client(t)

	cl.get("/dashboard")
	cl.get("/auth/login")

	w := cl.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gatekeeper_guard_decisions_total{guard="access",outcome="redirect"} 1`)
	assert.Contains(t, w.Body.String(), `gatekeeper_guard_decisions_total{guard="auth_only",outcome="render"} 1`)
}

func TestRouter_AuthDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{
		Auth: config.Auth{Mode: config.AuthModeNone},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "none", decodeBody(t, w)["auth_type"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CSRFRejectsFormsWithoutToken(t *testing.T) {
	f := setupRouter(t, func(cfg *RouterConfig) {
		cfg.CSRFSecret = []byte("0123456789abcdef0123456789abcdef")
	})
	f.createUser(t, "alice", entities.UserRoleAdmin)

	w := f.client(t).login("alice", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := setupRouter(t, func(cfg *RouterConfig) {
		cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/me", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := f.client(t).do(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
