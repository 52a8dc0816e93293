package guard

import "github.com/gin-gonic/gin"

// Signal is a read-only snapshot of whether the current visitor has a session.
// The zero value is SignalUnknown, which every guard treats as unauthenticated.
type Signal uint8

const (
	SignalUnknown Signal = iota
	SignalUnauthenticated
	SignalAuthenticated
)

// FromBool converts a plain flag into a Signal.
func FromBool(authenticated bool) Signal {
	if authenticated {
		return SignalAuthenticated
	}
	return SignalUnauthenticated
}

// Authenticated reports whether the signal grants access. Only an explicit
// SignalAuthenticated does.
func (s Signal) Authenticated() bool {
	return s == SignalAuthenticated
}

func (s Signal) String() string {
	switch s {
	case SignalAuthenticated:
		return "authenticated"
	case SignalUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Source provides the session signal for a request. Implementations must not
// mutate session state.
type Source interface {
	Signal(c *gin.Context) Signal
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(c *gin.Context) Signal

func (f SourceFunc) Signal(c *gin.Context) Signal {
	return f(c)
}

// Static returns a Source that always reports the same value.
func Static(authenticated bool) Source {
	s := FromBool(authenticated)
	return SourceFunc(func(*gin.Context) Signal { return s })
}

// ContextKeySignal holds the per-request snapshot in the gin context.
const ContextKeySignal = "guard_signal"

// snapshot evaluates src at most once per request. Later guards in the same
// chain see the value the first guard read.
func snapshot(c *gin.Context, src Source) Signal {
	if v, exists := c.Get(ContextKeySignal); exists {
		if s, ok := v.(Signal); ok {
			return s
		}
	}

	s := SignalUnknown
	if src != nil {
		s = src.Signal(c)
	}
	c.Set(ContextKeySignal, s)
	return s
}

// SignalFrom returns the snapshot taken by a guard earlier in the chain,
// or SignalUnknown if no guard has run.
func SignalFrom(c *gin.Context) Signal {
	if v, exists := c.Get(ContextKeySignal); exists {
		if s, ok := v.(Signal); ok {
			return s
		}
	}
	return SignalUnknown
}
