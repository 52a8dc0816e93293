package auth

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gatekeeper/internal/audit"
	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/guard"
	"github.com/mrlokans/gatekeeper/internal/notify"
)

// Sign-in flow paths other than the configurable login page.
const (
	RegisterPath = "/auth/register"
	LogoutPath   = "/auth/logout"
)

// ContextKeyRequestID is where the request ID middleware stores the ID.
const ContextKeyRequestID = "request_id"

// Auditor records sign-in activity.
type Auditor interface {
	LogAuth(userID uint, action, description, ipAddr, userAgent, requestID string, success bool)
}

// ControllerConfig collects what the sign-in pages need to know.
type ControllerConfig struct {
	Auth          config.Auth
	Routes        config.Routes
	Support       config.Support
	TemplatesPath string
}

// AuthController handles the login, registration and logout endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	notifier       *notify.Notifier
	auditor        Auditor
	templates      *template.Template
	config         ControllerConfig
	rateLimiter    *RateLimiter
}

// NewAuthController creates a new authentication controller. notifier and
// auditor may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, notifier *notify.Notifier, auditor Auditor, cfg ControllerConfig) *AuthController {
	var tmpl *template.Template
	if cfg.TemplatesPath != "" {
		parsed, err := template.ParseGlob(filepath.Join(cfg.TemplatesPath, "auth", "*.html"))
		if err != nil {
			log.Printf("[AUTH] Templates unavailable, rendering JSON: %v", err)
		} else {
			tmpl = parsed
		}
	}

	if cfg.Routes.LoginPath == "" {
		cfg.Routes.LoginPath = config.DefaultLoginPath
	}
	if cfg.Routes.HomePath == "" {
		cfg.Routes.HomePath = config.DefaultHomePath
	}

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		notifier:       notifier,
		auditor:        auditor,
		templates:      tmpl,
		config:         cfg,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.Auth.MaxLoginAttempts,
			WindowDuration:  cfg.Auth.RateLimitWindow,
			LockoutDuration: cfg.Auth.LockoutDuration,
		}),
	}
}

// RegisterRoutes mounts the sign-in pages on authOnly, which must be wrapped
// by guard.AuthOnlyLayout, and logout on open.
func (ac *AuthController) RegisterRoutes(authOnly, open gin.IRoutes) {
	authOnly.GET(ac.config.Routes.LoginPath, ac.LoginPage)
	authOnly.POST(ac.config.Routes.LoginPath, ac.Login)
	authOnly.GET(RegisterPath, ac.RegisterPage)
	authOnly.POST(RegisterPath, ac.Register)

	open.POST(LogoutPath, ac.Logout)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err == nil && !hasUsers {
		c.Redirect(http.StatusFound, RegisterPath)
		return
	}

	ac.renderTemplate(c, http.StatusOK, "login.html", ac.page(c, "Sign in", gin.H{
		"From":  returnPath(c.Query(guard.FromParam)),
		"Error": c.Query("error"),
	}))
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	from := returnPath(c.PostForm(guard.FromParam))
	if from == "" {
		from = returnPath(c.Query(guard.FromParam))
	}
	clientIP := c.ClientIP()

	fail := func(status int, message string) {
		ac.renderTemplate(c, status, "login.html", ac.page(c, "Sign in", gin.H{
			"From":     from,
			"Username": username,
			"Error":    message,
		}))
	}

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		ac.audit(c, 0, audit.ActionLogin, "Rate limited: "+username, false)
		fail(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, username)
		ac.audit(c, 0, audit.ActionLogin, "Failed login for "+username, false)

		message := "Invalid username or password"
		if errors.Is(err, ErrAccountLocked) {
			message = "Account is locked. Please try again later."
		}
		fail(http.StatusUnauthorized, message)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, username)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("[AUTH] Failed to create session for user %d: %v", user.ID, err)
		fail(http.StatusInternalServerError, "Failed to create session")
		return
	}

	ac.audit(c, user.ID, audit.ActionLogin, "Signed in", true)
	ac.notifier.Success(c.Request, "Welcome back, "+user.Username)

	target := from
	if target == "" {
		target = ac.config.Routes.HomePath
	}
	c.Redirect(http.StatusFound, target)
}

// RegisterPage renders the sign-up form. While no user exists it creates
// the administrator.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.renderTemplate(c, http.StatusInternalServerError, "register.html", ac.page(c, "Create account", gin.H{
			"Error": "Database error. Please try again.",
		}))
		return
	}
	if hasUsers && !ac.config.Auth.AllowRegistration {
		ac.notifier.Info(c.Request, "Registration is closed. Ask an administrator for an account.")
		c.Redirect(http.StatusFound, ac.config.Routes.LoginPath)
		return
	}

	ac.renderTemplate(c, http.StatusOK, "register.html", ac.page(c, "Create account", gin.H{
		"FirstUser": !hasUsers,
		"Error":     c.Query("error"),
	}))
}

// Register handles the sign-up form submission.
func (ac *AuthController) Register(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")

	fail := func(status int, message string) {
		ac.renderTemplate(c, status, "register.html", ac.page(c, "Create account", gin.H{
			"Username": username,
			"Email":    email,
			"Error":    message,
		}))
	}

	if password != c.PostForm("confirm_password") {
		fail(http.StatusBadRequest, "Passwords do not match")
		return
	}

	user, err := ac.service.Register(username, email, password)
	if err != nil {
		if errors.Is(err, ErrRegistrationClosed) {
			ac.notifier.Info(c.Request, "Registration is closed. Ask an administrator for an account.")
			c.Redirect(http.StatusFound, ac.config.Routes.LoginPath)
			return
		}
		ac.audit(c, 0, audit.ActionRegister, "Rejected registration for "+username, false)
		fail(http.StatusBadRequest, registrationError(err))
		return
	}

	ac.audit(c, user.ID, audit.ActionRegister, "Registered as "+string(user.Role), true)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("[AUTH] Failed to create session for new user %d: %v", user.ID, err)
		ac.notifier.Success(c.Request, "Account created. Please sign in.")
		c.Redirect(http.StatusFound, ac.config.Routes.LoginPath)
		return
	}

	ac.notifier.Success(c.Request, "Account created. Welcome, "+user.Username)
	c.Redirect(http.StatusFound, ac.config.Routes.HomePath)
}

// Logout destroys the session and redirects to the login page.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := ac.sessionManager.GetUserID(c.Request)
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("[AUTH] Failed to destroy session: %v", err)
	}
	if userID != 0 {
		ac.audit(c, userID, audit.ActionLogout, "Signed out", true)
		// Lands in the fresh session scs issues on commit
		ac.notifier.Info(c.Request, "You have been signed out")
	}
	c.Redirect(http.StatusFound, ac.config.Routes.LoginPath)
}

// page builds the template data shared by every sign-in page.
func (ac *AuthController) page(c *gin.Context, title string, data gin.H) gin.H {
	data["Title"] = title
	data["CSRFToken"] = GetCSRFToken(c)
	data["CSRFField"] = CSRFFormField
	data["LoginPath"] = ac.config.Routes.LoginPath
	data["RegisterPath"] = RegisterPath
	data["Support"] = ac.config.Support
	data["Toasts"] = ac.notifier.Pop(c.Request)
	return data
}

func (ac *AuthController) audit(c *gin.Context, userID uint, action, description string, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, description, c.ClientIP(), c.Request.UserAgent(), c.GetString(ContextKeyRequestID), success)
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *AuthController) renderTemplate(c *gin.Context, status int, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(status, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		log.Printf("[AUTH] Template %s failed: %v", name, err)
	}
}

// returnPath keeps a from value only if it is a local path.
func returnPath(raw string) string {
	return guard.SafeReturnPath(raw, "")
}

func registrationError(err error) string {
	switch {
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 12 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	case errors.Is(err, ErrUsernameRequired):
		return "Username is required"
	case errors.Is(err, ErrUsernameInvalid):
		return "Username must be 3-64 characters, alphanumeric with underscore/hyphen only"
	case errors.Is(err, ErrEmailRequired):
		return "Email is required"
	case errors.Is(err, ErrEmailInvalid):
		return "Invalid email format"
	case errors.Is(err, ErrPasswordRequired):
		return "Password is required"
	case errors.Is(err, ErrUserExists):
		return "That username or email is already taken"
	default:
		return "Failed to create account"
	}
}

// APITokenController handles API token management endpoints.
type APITokenController struct {
	service *Service
}

// NewAPITokenController creates a new API token controller.
func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

// GenerateToken creates a new API token for the authenticated user.
func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := tc.service.RevokeToken(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
