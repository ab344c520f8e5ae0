package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"karyalay/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
	ctxSessionID = "session_id"
)

// SessionChecker reports whether a server-side session is still open.
type SessionChecker interface {
	Active(ctx context.Context, sessionID string) (bool, error)
}

// AuthMiddleware accepts bearer access tokens. When sessions is non-nil the
// token's session must still be open, so a logout takes effect immediately.
func AuthMiddleware(accessTokenSecret string, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is empty"})
			c.Abort()
			return
		}

		claims, err := ValidateToken(tokenString, accessTokenSecret)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or malformed token"})
			}
			c.Abort()
			return
		}

		if claims.TokenType != TokenTypeAccess {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			c.Abort()
			return
		}

		if sessions != nil {
			active, err := sessions.Active(c.Request.Context(), claims.SessionID)
			if err != nil {
				logger.Error("session lookup failed", "session_id", claims.SessionID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify session"})
				c.Abort()
				return
			}
			if !active {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session has ended"})
				c.Abort()
				return
			}
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)
		c.Set(ctxSessionID, claims.SessionID)

		c.Next()
	}
}

func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxUserRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found"})
			c.Abort()
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid role type"})
			c.Abort()
			return
		}

		if roleStr != requiredRole {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetUserID(c *gin.Context) (int, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(int)
	if !ok {
		return 0, false
	}

	return id, true
}

// GetIdentity returns everything AuthMiddleware stored on the context.
func GetIdentity(c *gin.Context) (Identity, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return Identity{}, false
	}
	return Identity{
		UserID:    id,
		Email:     c.GetString(ctxUserEmail),
		Role:      c.GetString(ctxUserRole),
		SessionID: c.GetString(ctxSessionID),
	}, true
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(ctxUserRole) == RoleAdmin
}
