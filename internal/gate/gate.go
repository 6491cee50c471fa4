package gate

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/auth"
)

// Outcome is the result of evaluating a navigation.
type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	}
	return "unknown"
}

// Decision is an Outcome plus the redirect target, if any.
type Decision struct {
	Outcome  Outcome
	Location string
}

type prefixOwner struct {
	prefix string
	role   string
}

// Table maps path prefixes to the single role allowed to visit them.
type Table struct {
	owners    []prefixOwner // longest prefix first
	homes     map[string]string
	loginPath string
}

// NewTable builds a Table from configured rules. A prefix may belong to one role only.
func NewTable(rules []config.RouteRule, loginPath string) (*Table, error) {
	t := &Table{homes: make(map[string]string), loginPath: loginPath}
	seen := make(map[string]string)

	for _, r := range rules {
		role := strings.ToLower(strings.TrimSpace(r.Role))
		if role == "" {
			return nil, fmt.Errorf("route rule without role")
		}
		if len(r.Prefixes) == 0 {
			return nil, fmt.Errorf("role %q owns no prefixes", role)
		}
		for _, p := range r.Prefixes {
			p = cleanPrefix(p)
			if !strings.HasPrefix(p, "/") || p == "/" {
				return nil, fmt.Errorf("role %q: invalid prefix %q", role, p)
			}
			if other, dup := seen[p]; dup && other != role {
				return nil, fmt.Errorf("prefix %q owned by both %q and %q", p, other, role)
			}
			seen[p] = role
			t.owners = append(t.owners, prefixOwner{prefix: p, role: role})
		}
		home := r.Home
		if home == "" {
			home = cleanPrefix(r.Prefixes[0])
		}
		t.homes[role] = home
	}

	sort.SliceStable(t.owners, func(i, j int) bool {
		return len(t.owners[i].prefix) > len(t.owners[j].prefix)
	})
	return t, nil
}

func cleanPrefix(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// cleanPath decodes and cleans p the way the file server will see it, so
// dot segments cannot step out of a role area.
func cleanPath(p string) string {
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	return path.Clean("/" + p)
}

// Owner returns the role owning p. Matching is per path segment.
func (t *Table) Owner(p string) (string, bool) {
	p = cleanPath(p)
	for _, o := range t.owners {
		if p == o.prefix || strings.HasPrefix(p, o.prefix+"/") {
			return o.role, true
		}
	}
	return "", false
}

// Home returns the landing path of role.
func (t *Table) Home(role string) (string, bool) {
	home, ok := t.homes[role]
	return home, ok
}

// Evaluate decides a navigation to requestURI (path plus optional query) by
// the caller p, which is nil when no valid credential was presented.
func (t *Table) Evaluate(requestURI string, p *auth.Principal) Decision {
	reqPath := requestURI
	if i := strings.IndexAny(reqPath, "?#"); i >= 0 {
		reqPath = reqPath[:i]
	}

	owner, owned := t.Owner(reqPath)
	if !owned {
		return Decision{Outcome: Allow}
	}
	if p == nil {
		return t.toLogin(requestURI)
	}
	if p.Role == owner {
		return Decision{Outcome: Allow}
	}
	if home, ok := t.Home(p.Role); ok {
		return Decision{Outcome: RedirectHome, Location: home}
	}
	return t.toLogin(requestURI)
}

func (t *Table) toLogin(returnTo string) Decision {
	return Decision{
		Outcome:  RedirectLogin,
		Location: t.loginPath + "?next=" + url.QueryEscape(returnTo),
	}
}
