// Package auth owns the session signal the route guards read.
//
// It supports two authentication modes:
//   - "local": Local user database with session cookies for web pages and Bearer tokens for the API (default)
//   - "none": Every request is treated as signed in as DefaultUserID
//
// # Configuration
//
//	AUTH_MODE=local                        # or "none"
//	AUTH_SESSION_SECRET=<hex-32-bytes>     # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h              # Session duration
//	AUTH_TOKEN_EXPIRY=720h                 # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                    # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	AUTH_ALLOW_REGISTRATION=true           # Self-service sign up
//
// # Usage
//
// The Resolver is the guard.Source for both route guards:
//
//	resolver := auth.NewResolver(authService, sessionManager, cfg.Auth)
//	protected := router.Group("/", guard.AccessGuard(resolver))
//
// Extract user in handlers:
//
//	userID := auth.GetUserID(c)  // DefaultUserID when nobody is signed in
package auth
