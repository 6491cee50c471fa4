package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoCredential means the request carried no token at all.
	ErrNoCredential = errors.New("no credential")
	// ErrInvalidCredential covers undecodable, badly signed or expired tokens.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Principal is the authenticated caller.
type Principal struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

type ctxKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

// Decoder turns bearer tokens into principals. With an empty secret the
// claims are read without signature verification, since tokens are issued
// and verified by the reservation backend.
type Decoder struct {
	secret    []byte
	roleClaim string
	now       func() time.Time
}

// NewDecoder creates a Decoder reading the role from roleClaim.
func NewDecoder(secret, roleClaim string) *Decoder {
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &Decoder{secret: []byte(secret), roleClaim: roleClaim, now: time.Now}
}

// Decode parses raw into a Principal.
func (d *Decoder) Decode(raw string) (*Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoCredential
	}

	claims := jwt.MapClaims{}
	if len(d.secret) > 0 {
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return d.secret, nil
		}, jwt.WithTimeFunc(d.now))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
	}

	p := &Principal{Token: raw}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		p.ExpiresAt = exp.Time
		if !d.now().Before(exp.Time) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidCredential)
		}
	}
	p.Subject, _ = claims.GetSubject()
	if p.Subject == "" {
		// some backends put the user id under "id" or "user_id"
		for _, key := range []string{"id", "user_id"} {
			if v, ok := claims[key]; ok {
				p.Subject = fmt.Sprint(v)
				break
			}
		}
	}
	if role, ok := claims[d.roleClaim].(string); ok {
		p.Role = strings.ToLower(role)
	}
	if p.Subject == "" || p.Role == "" {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidCredential)
	}
	return p, nil
}

// TokenFromRequest reads the bearer token from the Authorization header,
// falling back to the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
