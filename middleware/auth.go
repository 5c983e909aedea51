package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"garagehub/utils"
)

// ActingUserKey is the context key under which the authenticated user id is
// stored.
const ActingUserKey = "actingUserID"

// JWTAuthMiddleware extracts and validates the bearer token and stores the
// acting user id in the request context. Token issuance lives in the auth
// service; this middleware only resolves identity. Role decisions belong to
// the services, which look the role up on the user record.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
			})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		userID, err := utils.ExtractUserIDFromToken(tokenString)
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
			})
			return
		}

		c.Set(ActingUserKey, userID)
		c.Next()
	}
}

// ActingUserID returns the authenticated user id stored by
// JWTAuthMiddleware.
func ActingUserID(c *gin.Context) string {
	id, _ := c.Get(ActingUserKey)
	s, _ := id.(string)
	return s
}
