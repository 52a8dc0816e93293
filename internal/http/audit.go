package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gatekeeper/internal/entities"
)

const (
	auditPageSize    = 25
	auditMaxPageSize = 100
)

// AuditLog lists recorded events. userID 0 means every user.
type AuditLog interface {
	GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type AuditController struct {
	auditLog AuditLog
	html     bool
}

func NewAuditController(auditLog AuditLog, html bool) *AuditController {
	return &AuditController{
		auditLog: auditLog,
		html:     html,
	}
}

// AuditLogPage renders the audit log UI for administrators.
// GET /admin/audit
func (ac *AuditController) AuditLogPage(c *gin.Context) {
	userID, ok := parseUserFilter(c)
	if !ok {
		return
	}
	page, limit, offset := parsePage(c, auditPageSize, auditMaxPageSize)

	events, total, err := ac.auditLog.GetEvents(userID, limit, offset)
	if err != nil {
		respondInternalError(c, err, "audit log page")
		return
	}

	result := newPaginatedResponse(events, total, limit, offset)
	if !ac.html || wantsJSON(c) {
		c.JSON(http.StatusOK, result)
		return
	}

	c.HTML(http.StatusOK, "audit.html", gin.H{
		"Title":       "Audit log",
		"Auth":        GetAuthTemplateData(c),
		"Events":      events,
		"CurrentPage": page,
		"TotalPages":  result.TotalPages,
		"TotalEvents": total,
		"UserFilter":  userID,
	})
}

// GetAuditEvents returns paginated audit events as JSON.
// GET /api/admin/audit
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	userID, ok := parseUserFilter(c)
	if !ok {
		return
	}
	_, limit, offset := parsePage(c, auditPageSize, auditMaxPageSize)

	events, total, err := ac.auditLog.GetEvents(userID, limit, offset)
	if err != nil {
		respondInternalError(c, err, "audit events")
		return
	}

	c.JSON(http.StatusOK, newPaginatedResponse(events, total, limit, offset))
}

// parseUserFilter reads the optional user_id query parameter.
func parseUserFilter(c *gin.Context) (uint, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
		return 0, false
	}
	return uint(id), true
}
