package interfaces

// This file contains compile-time interface implementation checks.
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/gatekeeper/internal/audit"
	"github.com/mrlokans/gatekeeper/internal/auth"
	"github.com/mrlokans/gatekeeper/internal/database"
	"github.com/mrlokans/gatekeeper/internal/guard"
	"github.com/mrlokans/gatekeeper/internal/http"
	"github.com/mrlokans/gatekeeper/internal/scheduler"
	"github.com/mrlokans/gatekeeper/internal/tasks"
)

// =============================================================================
// Session Signal
// =============================================================================

var _ guard.Source = (*auth.Resolver)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ auth.Auditor = (*audit.Service)(nil)
var _ http.AuditLog = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ scheduler.Enqueuer = (*tasks.Client)(nil)

// =============================================================================
// Health and Pages
// =============================================================================

var _ http.Pinger = (*database.Database)(nil)
var _ http.UserLookup = (*auth.Service)(nil)
