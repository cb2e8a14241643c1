package middleware

import (
	"net/http"
	"strings"

	"github.com/DIPEDEV/batalla-numeros/services"

	"github.com/gin-gonic/gin"
)

// TokenValidator turns a session token into its claims.
type TokenValidator interface {
	ValidateToken(token string) (*services.Claims, error)
}

// BearerToken reads the token from the Authorization header, falling back
// to the token query parameter used by websocket clients.
func BearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// AuthMiddleware sets user_id and is_anonymous on the context.
func AuthMiddleware(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("is_anonymous", claims.IsAnonymous)
		c.Next()
	}
}
