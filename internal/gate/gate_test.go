package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/auth"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(config.DefaultRoutes, "/login")
	require.NoError(t, err)
	return table
}

func TestTable_Evaluate(t *testing.T) {
	table := newTestTable(t)
	driver := &auth.Principal{Subject: "1", Role: "driver"}
	manager := &auth.Principal{Subject: "2", Role: "manager"}
	stranger := &auth.Principal{Subject: "3", Role: "auditor"}

	testCases := []struct {
		name      string
		uri       string
		principal *auth.Principal
		expected  Decision
	}{
		{
			name:     "no credential on a role area",
			uri:      "/driver/reservations?day=2025-03-10",
			expected: Decision{Outcome: RedirectLogin, Location: "/login?next=%2Fdriver%2Freservations%3Fday%3D2025-03-10"},
		},
		{
			name:      "driver in the manager area goes home",
			uri:       "/manager",
			principal: driver,
			expected:  Decision{Outcome: RedirectHome, Location: "/driver"},
		},
		{
			name:      "manager in own area",
			uri:       "/manager/reports",
			principal: manager,
			expected:  Decision{Outcome: Allow},
		},
		{
			name:     "public path",
			uri:      "/login",
			expected: Decision{Outcome: Allow},
		},
		{
			name:     "prefix match is per segment",
			uri:      "/managers",
			expected: Decision{Outcome: Allow},
		},
		{
			name:      "dot segments cannot leave the caller's area",
			uri:       "/driver/../manager/reports",
			principal: driver,
			expected:  Decision{Outcome: RedirectHome, Location: "/driver"},
		},
		{
			name:      "encoded dot segments are decoded first",
			uri:       "/driver/%2e%2e/manager",
			principal: driver,
			expected:  Decision{Outcome: RedirectHome, Location: "/driver"},
		},
		{
			name:     "dot segments into a role area need a credential",
			uri:      "/login/../agent/queue",
			expected: Decision{Outcome: RedirectLogin, Location: "/login?next=%2Flogin%2F..%2Fagent%2Fqueue"},
		},
		{
			name:      "unknown role goes to login",
			uri:       "/agent",
			principal: stranger,
			expected:  Decision{Outcome: RedirectLogin, Location: "/login?next=%2Fagent"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, table.Evaluate(tc.uri, tc.principal))
		})
	}
}

func TestNewTable_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		rules []config.RouteRule
	}{
		{name: "missing role", rules: []config.RouteRule{{Prefixes: []string{"/x"}}}},
		{name: "no prefixes", rules: []config.RouteRule{{Role: "driver"}}},
		{name: "relative prefix", rules: []config.RouteRule{{Role: "driver", Prefixes: []string{"driver"}}}},
		{name: "root prefix", rules: []config.RouteRule{{Role: "driver", Prefixes: []string{"/"}}}},
		{name: "shared prefix", rules: []config.RouteRule{
			{Role: "driver", Prefixes: []string{"/shared"}},
			{Role: "agent", Prefixes: []string{"/shared/"}},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTable(tc.rules, "/login")
			assert.Error(t, err)
		})
	}
}

func TestTable_LongestPrefixWins(t *testing.T) {
	table, err := NewTable([]config.RouteRule{
		{Role: "manager", Prefixes: []string{"/ops"}},
		{Role: "agent", Prefixes: []string{"/ops/complaints"}, Home: "/ops/complaints/new"},
	}, "/login")
	require.NoError(t, err)

	owner, ok := table.Owner("/ops/complaints/12")
	assert.True(t, ok)
	assert.Equal(t, "agent", owner)

	owner, _ = table.Owner("/ops/dashboard")
	assert.Equal(t, "manager", owner)

	home, _ := table.Home("agent")
	assert.Equal(t, "/ops/complaints/new", home)
}

func signedToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42", "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func setupGateRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	dec := auth.NewDecoder("secret", "role")

	r.Use(Pages(newTestTable(t), dec, "token", zap.NewNop()))
	r.GET("/driver", func(c *gin.Context) {
		p, ok := Principal(c)
		require.True(t, ok)
		c.String(http.StatusOK, "hello "+p.Subject)
	})

	api := r.Group("/api", Authenticate(dec, "token"))
	api.GET("/complaints", RequireRole("agent"), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestPagesMiddleware(t *testing.T) {
	router := setupGateRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/driver", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fdriver", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/driver", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: signedToken(t, "manager")})
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/manager", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/driver", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: signedToken(t, "driver")})
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello 42", w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/driver", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fdriver", w.Header().Get("Location"))
}

func TestAPIMiddleware(t *testing.T) {
	router := setupGateRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/complaints", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "driver"))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "agent"))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
