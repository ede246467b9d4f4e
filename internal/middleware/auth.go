package middleware

import (
	"net/http"
	"strings"

	"quizzarium-backend/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	KeyUserID = "user_id"
	KeyRole   = "role"
	KeyEmail  = "email"
)

func JWTAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		if claims.Blocked {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user is blocked"})
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyRole, claims.Role)
		c.Set(KeyEmail, claims.Email)
		c.Next()
	}
}

// RequireRoles must run after JWTAuth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString(KeyRole)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// Actor builds the service caller from the values JWTAuth stored.
func Actor(c *gin.Context) services.Actor {
	return services.Actor{UserID: c.GetUint(KeyUserID), Role: c.GetString(KeyRole)}
}
