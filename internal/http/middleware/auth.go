// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. It resolves the
// Authorization header into an identity.Session via the injected resolver and
// stashes the session in the Gin context for handlers and downstream
// middleware (rate limiting keys, idempotency scoping). Role enforcement is
// deliberately NOT done here: services check roles themselves so that
// authorization failures are uniform regardless of transport.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
)

// ctxKeySession is the Gin context key the resolved session is stored under.
const ctxKeySession = "auth.session"

// SessionResolver turns a bearer token into a session. Implementations
// return an error for missing, malformed, or expired tokens.
type SessionResolver func(ctx context.Context, token string) (identity.Session, error)

// SessionFrom returns the session stashed by TagSession or RequireSession.
// The second return value is false on unauthenticated requests.
func SessionFrom(c *gin.Context) (identity.Session, bool) {
	v, ok := c.Get(ctxKeySession)
	if !ok {
		return identity.Session{}, false
	}
	sess, ok := v.(identity.Session)
	return sess, ok
}

// TagSession resolves the bearer token when one is present and stashes the
// session for downstream middleware that keys on identity (idempotency
// scoping, rate-limit buckets). It never rejects: requests without a token or
// with an invalid one proceed untagged, and RequireSession stays the
// enforcement point. Register it engine-wide, before those middlewares.
func TagSession(resolve SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			if sess, err := resolve(c.Request.Context(), token); err == nil {
				c.Set(ctxKeySession, sess)
			}
		}
		c.Next()
	}
}

// RequireSession returns middleware that rejects requests without a valid
// bearer token. On success the session is available via SessionFrom.
// A session already stashed by TagSession is reused without a second resolve.
func RequireSession(resolve SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFrom(c); ok {
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "missing bearer token",
			})
			return
		}

		sess, err := resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "invalid or expired session",
			})
			return
		}

		c.Set(ctxKeySession, sess)
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
// The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
