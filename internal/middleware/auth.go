package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/collabspace/server/internal/services"
	"github.com/collabspace/server/internal/utils"
	"github.com/collabspace/server/pkg/logger"
	"github.com/collabspace/server/pkg/response"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextEmail    = "email"

	// TokenCookie is the cookie the token may ride in as an alternative to
	// the Authorization header.
	TokenCookie = "token"
)

// AuthRequired validates the request's JWT and rejects revoked tokens.
// Every failure is the same opaque 401 so callers cannot distinguish a
// missing token from an expired or revoked one. blacklist may be nil when
// no revocation store is configured.
func AuthRequired(blacklist *services.TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsRevoked(c.Request.Context(), token)
			if err != nil {
				// Revocation store unreachable: fail closed.
				logger.Errorf("[Auth] Revocation check failed: %v", err)
				response.Unauthorized(c, "unauthorized")
				c.Abort()
				return
			}
			if revoked {
				c.SetCookie(TokenCookie, "", -1, "/", "", false, true)
				response.Unauthorized(c, "unauthorized")
				c.Abort()
				return
			}
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextEmail, claims.Email)

		c.Next()
	}
}

// ExtractToken pulls the JWT from the Authorization header or the token
// cookie. The header wins when both are present.
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetUsername gets the current username from context
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(ContextUsername); exists {
		return username.(string)
	}
	return ""
}

// GetEmail gets the current user email from context
func GetEmail(c *gin.Context) string {
	if email, exists := c.Get(ContextEmail); exists {
		return email.(string)
	}
	return ""
}
