package guard

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	guardAccess   = "access"
	guardAuthOnly = "auth_only"
)

type options struct {
	dest    Destinations
	metrics *Metrics
}

// Option configures a guard middleware.
type Option func(*options)

// WithDestinations overrides the login and home paths.
func WithDestinations(dest Destinations) Option {
	return func(o *options) {
		if dest.Login != "" {
			o.dest.Login = dest.Login
		}
		if dest.Home != "" {
			o.dest.Home = dest.Home
		}
	}
}

// WithMetrics records every decision in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{dest: DefaultDestinations()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// AccessGuard lets the request through only when src reports a session.
// Otherwise it redirects to the login destination and aborts the chain
// before any wrapped handler runs.
func AccessGuard(src Source, opts ...Option) gin.HandlerFunc {
	o := buildOptions(opts)

	return func(c *gin.Context) {
		d := DecideAccess(snapshot(c, src), LocationOf(c.Request.URL), o.dest)
		o.metrics.observe(guardAccess, d)

		if d.Renders() {
			c.Next()
			return
		}
		respondRedirect(c, *d.Redirect, http.StatusUnauthorized, "authentication required")
	}
}

// AuthOnlyLayout lets the request through only when src reports no session.
// Signed-in visitors are redirected to the home destination.
func AuthOnlyLayout(src Source, opts ...Option) gin.HandlerFunc {
	o := buildOptions(opts)

	return func(c *gin.Context) {
		d := DecideAuthOnly(snapshot(c, src), o.dest)
		o.metrics.observe(guardAuthOnly, d)

		if d.Renders() {
			c.Next()
			return
		}
		respondRedirect(c, *d.Redirect, http.StatusSeeOther, "already authenticated")
	}
}

// respondRedirect writes the instruction in the form the client understands:
// an HX-Redirect for HTMX, a JSON body for API clients, a 302 otherwise.
// A plain redirect does not add a history entry, which is what Replace asks for.
func respondRedirect(c *gin.Context, instr Instruction, apiStatus int, message string) {
	target := instr.URL()

	switch {
	case isHTMXRequest(c):
		c.Header("HX-Redirect", target)
		c.AbortWithStatus(http.StatusOK)
	case isAPIRequest(c):
		if apiStatus >= 300 && apiStatus < 400 {
			c.Header("Location", target)
		}
		c.AbortWithStatusJSON(apiStatus, gin.H{
			"error":    message,
			"redirect": instr,
		})
	default:
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

func isHTMXRequest(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
