// Package interfaces documents the seams between gatekeeper's packages.
//
// # Interface Categories
//
// ## Session Signal
//
//   - guard.Source: read-only provider of the session signal (internal/guard/signal.go).
//     auth.Resolver is the production implementation; guard.Static and
//     guard.SourceFunc serve tests and AUTH_MODE=none.
//
// ## Audit Trail
//
//   - auth.Auditor: sign-in activity sink (internal/auth/handlers.go)
//   - http.AuditLog: paginated event listing (internal/http/audit.go)
//   - tasks.AuditEventCleaner: retention cleanup (internal/tasks/cleanup_audit.go)
//
// audit.Service implements all three.
//
// ## Background Work
//
//   - scheduler.Enqueuer: hands tasks to the queue (internal/scheduler/audit_cleanup.go).
//     tasks.Client implements it; a nil Enqueuer makes the scheduler run
//     the cleanup inline.
//
// ## Health
//
//   - http.Pinger: database reachability for /health (internal/http/health.go)
//   - http.UserLookup: account page data (internal/http/pages.go)
//
// # Adding a New Guarded Page
//
//  1. Add the handler to PagesController in internal/http/pages.go and build
//     its payload with pc.page so toasts are drained.
//
//  2. Register it on the protected group in router.go. Routes on that group
//     never run without a session; nothing else needs checking in the handler.
//
//  3. For admin-only pages add resolver.RequireRole after the guard.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go.
package interfaces
