// Package guard decides whether a request may reach the handler it targets
// or must be redirected, based on a single session signal.
//
// Two guards share one decision function:
//   - AccessGuard protects application pages. Visitors without a session are
//     sent to the login destination with the page they asked for carried in
//     the "from" query parameter.
//   - AuthOnlyLayout wraps the login and register pages. Visitors who already
//     have a session are sent to the home destination.
//
// The decision itself is pure:
//
//	d := guard.DecideAccess(signal, guard.Location{Path: "/dashboard"}, guard.DefaultDestinations())
//	if !d.Renders() {
//	    // d.Redirect.Destination == "/auth/login", d.Redirect.State.From == "/dashboard"
//	}
//
// The gin middleware reads the signal once per request from an injected
// Source and applies the decision before the wrapped handler runs:
//
//	protected := router.Group("/", guard.AccessGuard(resolver))
//	authPages := router.Group("/auth", guard.AuthOnlyLayout(resolver))
package guard
