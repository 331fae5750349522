// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller identity. Authentication is out of scope:
// clients announce who they are with the X-User-ID header, the same opaque
// identity they use to join over the WebSocket.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderUserID carries the caller identity.
	HeaderUserID = "X-User-ID"
	// userIDKey is the Gin context key for the resolved identity.
	userIDKey = "userID"

	maxUserIDBytes = 64
)

// Identity stores a trimmed X-User-ID under "userID". An oversized value is
// rejected with 400; a missing one leaves the context empty.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if len(id) > maxUserIDBytes {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_request",
				"message":    "X-User-ID too long",
			})
			return
		}
		if id != "" {
			c.Set(userIDKey, id)
		}
		c.Next()
	}
}

// RequireIdentity aborts with 401 when no identity was resolved.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "X-User-ID header required",
			})
			return
		}
		c.Next()
	}
}

// UserID returns the identity resolved by Identity, or "".
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
