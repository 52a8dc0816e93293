package guard

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/mrlokans/gatekeeper/internal/config"
)

// Location is the navigation target a request attempted.
type Location struct {
	Path     string
	RawQuery string
}

// LocationOf captures the path and query of a request URL.
func LocationOf(u *url.URL) Location {
	if u == nil {
		return Location{Path: "/"}
	}
	return Location{Path: u.Path, RawQuery: u.RawQuery}
}

func (l Location) String() string {
	path := l.Path
	if path == "" {
		path = "/"
	}
	if l.RawQuery == "" {
		return path
	}
	return path + "?" + l.RawQuery
}

// Destinations are the two places a guard can redirect to.
type Destinations struct {
	Login string
	Home  string
}

// DefaultDestinations returns the built-in login and home paths.
func DefaultDestinations() Destinations {
	return Destinations{
		Login: config.DefaultLoginPath,
		Home:  config.DefaultHomePath,
	}
}

// RedirectState is auxiliary data attached to a redirect.
type RedirectState struct {
	From string `json:"from"`
}

// Instruction tells the navigation layer where to go instead.
type Instruction struct {
	Destination string         `json:"destination"`
	Replace     bool           `json:"replace"`
	State       *RedirectState `json:"state,omitempty"`
}

// FromParam is the query parameter that carries RedirectState.From.
const FromParam = "from"

// URL renders the instruction as a redirect target.
func (i Instruction) URL() string {
	if i.State == nil || i.State.From == "" {
		return i.Destination
	}
	sep := "?"
	if strings.Contains(i.Destination, "?") {
		sep = "&"
	}
	return i.Destination + sep + url.Values{FromParam: {i.State.From}}.Encode()
}

type Kind uint8

const (
	KindRender Kind = iota
	KindRedirect
)

// Decision is the outcome of a guard evaluation: render the wrapped content
// or follow Redirect.
type Decision struct {
	Kind     Kind
	Redirect *Instruction
}

// Renders reports whether the wrapped content may run.
func (d Decision) Renders() bool {
	return d.Kind == KindRender
}

// Decide is shared by both guards. Content renders only when the signal
// matches what the guard requires; otherwise the visitor is redirected to
// login (carrying loc) or home.
func Decide(requireAuthenticated bool, s Signal, loc Location, dest Destinations) Decision {
	if s.Authenticated() == requireAuthenticated {
		return Decision{Kind: KindRender}
	}

	if requireAuthenticated {
		return Decision{
			Kind: KindRedirect,
			Redirect: &Instruction{
				Destination: dest.Login,
				Replace:     true,
				State:       &RedirectState{From: loc.String()},
			},
		}
	}

	return Decision{
		Kind: KindRedirect,
		Redirect: &Instruction{
			Destination: dest.Home,
			Replace:     true,
		},
	}
}

// DecideAccess is the AccessGuard decision.
func DecideAccess(s Signal, loc Location, dest Destinations) Decision {
	return Decide(true, s, loc, dest)
}

// DecideAuthOnly is the AuthOnlyLayout decision.
func DecideAuthOnly(s Signal, dest Destinations) Decision {
	return Decide(false, s, Location{}, dest)
}

// IsLocalPath reports whether path is safe to use as a post-login redirect.
func IsLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Must start with /
	if !strings.HasPrefix(path, "/") {
		return false
	}

	// Browsers drop tabs and newlines, so "/\t/evil.com" becomes "//evil.com"
	if strings.ContainsFunc(path, unicode.IsControl) {
		return false
	}

	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}

	// Reject URLs with schemes
	if strings.Contains(path, "://") {
		return false
	}

	// Reject backslashes, browsers normalize them to slashes
	if strings.Contains(path, "\\") {
		return false
	}

	u, err := url.Parse(path)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return false
	}
	return !strings.HasPrefix(u.Path, "//")
}

// SafeReturnPath returns from if it is local, otherwise fallback.
func SafeReturnPath(from, fallback string) string {
	if IsLocalPath(from) {
		return from
	}
	return fallback
}
