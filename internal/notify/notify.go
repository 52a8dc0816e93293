// Package notify queues short user-facing notifications ("toasts") in the
// session so they survive a redirect and are shown on the next page.
//
// Handlers push:
//
//	notifier.Success(c.Request, "Signed in")
//
// Page handlers drain the queue into their payload with Pop. For HTMX
// requests, Deliver drains it into an HX-Trigger header instead:
//
//	HX-Trigger: {"showToast":[{"level":"success","message":"Signed in"}]}
package notify

import (
	"encoding/gob"
	"encoding/json"
	"log"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
)

// Level is the toast severity.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Toast is one queued notification.
type Toast struct {
	Level   Level  `json:"level"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// EventName is the HX-Trigger event clients listen for.
const EventName = "showToast"

const sessionKey = "flash_toasts"

// maxQueued bounds the queue so a loop of failed submissions cannot grow the session.
const maxQueued = 10

func init() {
	gob.Register([]Toast{})
}

// Notifier stores toasts in the visitor's session. A nil Notifier drops
// everything, which is what AUTH_MODE=none gets.
type Notifier struct {
	sessions *scs.SessionManager
}

// New creates a Notifier backed by sessions.
func New(sessions *scs.SessionManager) *Notifier {
	if sessions == nil {
		return nil
	}
	return &Notifier{sessions: sessions}
}

// Push queues t for the visitor behind r.
func (n *Notifier) Push(r *http.Request, t Toast) {
	if n == nil || t.Message == "" {
		return
	}
	if t.Level == "" {
		t.Level = LevelInfo
	}

	queued, _ := n.sessions.Get(r.Context(), sessionKey).([]Toast)
	queued = append(queued, t)
	if len(queued) > maxQueued {
		queued = queued[len(queued)-maxQueued:]
	}
	n.sessions.Put(r.Context(), sessionKey, queued)
}

func (n *Notifier) Success(r *http.Request, message string) {
	n.Push(r, Toast{Level: LevelSuccess, Message: message})
}

func (n *Notifier) Error(r *http.Request, message string) {
	n.Push(r, Toast{Level: LevelError, Message: message})
}

func (n *Notifier) Warning(r *http.Request, message string) {
	n.Push(r, Toast{Level: LevelWarning, Message: message})
}

func (n *Notifier) Info(r *http.Request, message string) {
	n.Push(r, Toast{Level: LevelInfo, Message: message})
}

// WithTitle queues a toast with a heading.
func (n *Notifier) WithTitle(r *http.Request, level Level, title, message string) {
	n.Push(r, Toast{Level: level, Title: title, Message: message})
}

// Pop returns and clears the queued toasts.
func (n *Notifier) Pop(r *http.Request) []Toast {
	if n == nil {
		return nil
	}
	queued, _ := n.sessions.Pop(r.Context(), sessionKey).([]Toast)
	return queued
}

// Deliver drains queued toasts into the HX-Trigger header of HTMX requests.
// It must run after the session middleware.
func (n *Notifier) Deliver() gin.HandlerFunc {
	return func(c *gin.Context) {
		if n == nil || c.GetHeader("HX-Request") != "true" {
			c.Next()
			return
		}

		if toasts := n.Pop(c.Request); len(toasts) > 0 {
			payload, err := json.Marshal(map[string][]Toast{EventName: toasts})
			if err != nil {
				log.Printf("[NOTIFY] Failed to encode toasts: %v", err)
			} else {
				c.Header("HX-Trigger", string(payload))
			}
		}
		c.Next()
	}
}
