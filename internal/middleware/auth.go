package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hackernest/backend/pkg/types"
)

var jwtSecret = []byte(os.Getenv("JWT_SECRET"))

func parseToken(c *gin.Context) (int, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return 0, false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, false
	}

	return int(userID), true
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the authenticated user id in the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "Authentication required"})
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// OptionalAuthMiddleware stores the user id when a valid token is present
// and lets anonymous requests through. Used by the public list and single
// post reads so isUpvoted can be resolved for logged-in users.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := parseToken(c); ok {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
