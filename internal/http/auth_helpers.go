package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gatekeeper/internal/auth"
	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/entities"
)

const contextKeyAuthTemplateData = "auth_template_data"

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	Enabled   bool              `json:"enabled"`
	LoggedIn  bool              `json:"logged_in"`
	Username  string            `json:"username,omitempty"`
	Role      entities.UserRole `json:"role,omitempty"`
	CSRFToken string            `json:"-"` // Empty when auth is disabled
	LogoutURL string            `json:"logout_url,omitempty"`
}

// AuthContextMiddleware injects authentication data into the Gin context for
// templates. Mount it behind a guard so the identity is already resolved.
func AuthContextMiddleware(authMode config.AuthMode) gin.HandlerFunc {
	authEnabled := authMode != config.AuthModeNone

	return func(c *gin.Context) {
		authData := AuthTemplateData{
			Enabled:   authEnabled,
			CSRFToken: auth.GetCSRFToken(c),
		}

		if authEnabled && auth.GetUserID(c) != 0 {
			authData.LoggedIn = true
			authData.Username = auth.GetUsername(c)
			authData.Role = auth.GetUserRole(c)
			authData.LogoutURL = auth.LogoutPath
		}

		c.Set(contextKeyAuthTemplateData, authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get(contextKeyAuthTemplateData); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}
