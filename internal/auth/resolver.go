package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/entities"
	"github.com/mrlokans/gatekeeper/internal/guard"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type" // "session", "bearer", or "none"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// DefaultUserID is used when authentication is disabled
const DefaultUserID = uint(0)

// Resolver identifies the visitor and reports the session signal the route
// guards act on. It only reads session state.
type Resolver struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
}

var _ guard.Source = (*Resolver)(nil)

// NewResolver creates a signal source over bearer tokens and session cookies.
func NewResolver(service *Service, sessionManager *SessionManager, cfg config.Auth) *Resolver {
	return &Resolver{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
	}
}

// Signal resolves the visitor once and stores their identity in the context.
func (r *Resolver) Signal(c *gin.Context) guard.Signal {
	if r.config.Mode == config.AuthModeNone {
		c.Set(ContextKeyUserID, DefaultUserID)
		c.Set(ContextKeyAuthType, AuthTypeNone)
		return guard.SignalAuthenticated
	}

	// Try Bearer token first (for API clients)
	if user := r.tryBearerAuth(c); user != nil {
		r.setUserContext(c, user, AuthTypeBearer)
		return guard.SignalAuthenticated
	}

	userID, ok := r.sessionUserID(c)
	if !ok {
		return guard.SignalUnknown
	}
	if userID == 0 {
		return guard.SignalUnauthenticated
	}

	user, err := r.service.GetUserByID(userID)
	if err != nil {
		// Account removed or unreadable since the session was issued
		return guard.SignalUnauthenticated
	}
	r.setUserContext(c, user, AuthTypeSession)
	return guard.SignalAuthenticated
}

// tryBearerAuth attempts to authenticate using Bearer token.
func (r *Resolver) tryBearerAuth(c *gin.Context) *entities.User {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok || r.service == nil {
		return nil
	}

	user, err := r.service.ValidateToken(token)
	if err != nil {
		return nil
	}
	return user
}

// sessionUserID reads the user ID from the session. ok is false when no
// session is loaded for the request, which the guards treat as signed out.
func (r *Resolver) sessionUserID(c *gin.Context) (userID uint, ok bool) {
	if r.sessionManager == nil || r.service == nil {
		return 0, false
	}

	// scs panics when SessionLoadSave did not run for this request
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[AUTH] Session unavailable for %s: %v", c.Request.URL.Path, rec)
			userID, ok = 0, false
		}
	}()

	return r.sessionManager.GetUserID(c.Request), true
}

// setUserContext stores user information in the Gin context.
func (r *Resolver) setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyRole, user.Role)
	c.Set(ContextKeyAuthType, authType)
}

// RequireRole returns a middleware that requires one of roles. Mount it after
// guard.AccessGuard so the identity is already resolved.
func (r *Resolver) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool)
	for _, role := range roles {
		roleSet[role] = true
	}

	return func(c *gin.Context) {
		if r.config.Mode == config.AuthModeNone {
			c.Next()
			return
		}

		if !roleSet[GetUserRole(c)] {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.Contains(c.GetHeader("Accept"), "application/json") {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "insufficient permissions",
				})
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns DefaultUserID (0) if not authenticated or auth is disabled.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return DefaultUserID
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
