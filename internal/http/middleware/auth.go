// Package middleware – bearer-token authentication.
//
// This file implements JWT (HS256) authentication for the API. The middleware
// resolves the caller's identity, stashes it in the Gin context under the
// "userID" and "isAdmin" keys, and rejects requests with missing or invalid
// tokens. Downstream components (handlers, rate limiter keys, idempotency
// lookups) read identity exclusively through the accessor helpers here.
//
// Development mode: when no signing secret is configured, the middleware
// falls back to the X-User-ID header (or "demo-user") so the API stays usable
// without an identity provider.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys for the authenticated identity.
const (
	ctxKeyUserID  = "userID"
	ctxKeyIsAdmin = "isAdmin"
)

// HeaderUserID is the development-mode identity header honored when JWT
// verification is disabled.
const HeaderUserID = "X-User-ID"

// AuthClaims is the JWT claim set the API issues and accepts. IsAdmin gates
// document-management operations.
type AuthClaims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin"`
}

// Auth returns a middleware that authenticates requests.
//
// With a non-empty secret it requires an "Authorization: Bearer <token>"
// header carrying an HS256-signed token; any other signing method is
// rejected. With an empty secret it runs in development mode and derives the
// identity from X-User-ID.
func Auth(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) {
			uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
			if uid == "" {
				uid = "demo-user"
			}
			c.Set(ctxKeyUserID, uid)
			c.Set(ctxKeyIsAdmin, false)
			c.Next()
		}
	}

	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims := &AuthClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeyIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// UserID returns the authenticated user identifier from the Gin context.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IsAdmin reports whether the authenticated user carries the admin claim.
func IsAdmin(c *gin.Context) bool {
	if v, ok := c.Get(ctxKeyIsAdmin); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    "unauthorized",
		"message": msg,
	})
}
