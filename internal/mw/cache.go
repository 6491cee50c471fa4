package mw

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// ResponseCache keeps successful GET responses in memory, keyed by request
// URL, until they expire or are invalidated.
type ResponseCache struct {
	store *cache.Cache
	ttl   time.Duration
}

type cachedResponse struct {
	status int
	header http.Header
	body   []byte
}

// NewResponseCache returns a cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Invalidate drops every entry whose path starts with prefix.
func (rc *ResponseCache) Invalidate(prefix string) {
	for key := range rc.store.Items() {
		if strings.HasPrefix(key, prefix) {
			rc.store.Delete(key)
		}
	}
}

// recorder tees the body into a buffer on its way to the client.
type recorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// Handler serves cached responses and records new ones. Responses carry
// X-Cache: HIT or MISS. Only 2xx responses without cookies are stored, and a
// request with Cache-Control: no-cache always reaches the handler.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.String()
		if !strings.Contains(c.GetHeader("Cache-Control"), "no-cache") {
			if v, found := rc.store.Get(key); found {
				rc.replay(c, v.(cachedResponse))
				return
			}
		}

		c.Header("X-Cache", "MISS")
		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status < 200 || status >= 300 || rec.Header().Get("Set-Cookie") != "" {
			return
		}
		header := rec.Header().Clone()
		header.Del("X-Cache")
		rc.store.Set(key, cachedResponse{status: status, header: header, body: rec.buf.Bytes()}, rc.ttl)
	}
}

func (rc *ResponseCache) replay(c *gin.Context, resp cachedResponse) {
	for k, v := range resp.header {
		c.Writer.Header()[k] = v
	}
	c.Header("X-Cache", "HIT")
	c.Writer.WriteHeader(resp.status)
	c.Writer.Write(resp.body)
	c.Abort()
}
