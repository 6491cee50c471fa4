package gate

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parking-reservation-backend/internal/auth"
)

// PrincipalKey is the gin context key holding the *auth.Principal.
const PrincipalKey = "principal"

func attach(c *gin.Context, p *auth.Principal) {
	c.Set(PrincipalKey, p)
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
}

// Principal returns the caller attached by Authenticate or Pages.
func Principal(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}

// Pages gates browser navigation to role areas with redirects.
func Pages(t *Table, dec *auth.Decoder, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p *auth.Principal
		if raw := auth.TokenFromRequest(c.Request, cookieName); raw != "" {
			decoded, err := dec.Decode(raw)
			if err != nil {
				logger.Debug("ignoring undecodable credential", zap.String("path", c.Request.URL.Path), zap.Error(err))
			} else {
				p = decoded
			}
		}

		d := t.Evaluate(c.Request.URL.RequestURI(), p)
		if d.Outcome != Allow {
			c.Redirect(http.StatusFound, d.Location)
			c.Abort()
			return
		}
		if p != nil {
			attach(c, p)
		}
		c.Next()
	}
}

// Authenticate requires a valid credential on API routes.
func Authenticate(dec *auth.Decoder, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := dec.Decode(auth.TokenFromRequest(c.Request, cookieName))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		attach(c, p)
		c.Next()
	}
}

// RequireRole lets only the listed roles through. It must run after Authenticate.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if _, ok := allowed[p.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
