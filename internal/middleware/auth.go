package middleware

import (
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

const sessionContextKey = "session"

// SessionMiddleware verifies the session cookie once per request and stores
// the claims in the gin context. Invalid or missing cookies leave the request
// anonymous; they never fail it.
func SessionMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(utils.SessionCookieName); err == nil {
			if claims := utils.VerifySession(token, secret); claims != nil {
				c.Set(sessionContextKey, claims)
			}
		}
		c.Next()
	}
}

// CurrentSession returns the verified session of the request, if any.
func CurrentSession(c *gin.Context) (*utils.SessionClaims, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*utils.SessionClaims)
	return claims, ok && claims != nil
}

// RequireRole is the capability check applied to every action group.
// It must run after SessionMiddleware.
func RequireRole(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentSession(c)
		if !ok {
			utils.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if claims.Role == allowedRole {
				c.Next()
				return
			}
		}

		utils.RespondError(c, utils.ErrUnauthorized)
		c.Abort()
	}
}
