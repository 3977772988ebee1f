package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/entity"
	"github.com/ytschitwan/portal/web/service"
)

const identityKey = "identity"

// AuthRequired verifies the bearer token and stores the resolved identity in
// the gin context. Missing, malformed, expired or orphaned tokens get 401.
func AuthRequired(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortJSON(c, http.StatusUnauthorized, "No token provided")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			abortJSON(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		identity, err := auth.Verify(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				abortJSON(c, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, service.ErrUnknownSubject):
				abortJSON(c, http.StatusUnauthorized, "User not found")
			case errors.Is(err, service.ErrInvalidToken):
				abortJSON(c, http.StatusUnauthorized, "Invalid token")
			default:
				logger.Error("token verification failed:", err)
				abortJSON(c, http.StatusInternalServerError, "Internal server error")
			}
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// GetIdentity returns the identity stored by AuthRequired, or nil.
func GetIdentity(c *gin.Context) *service.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*service.Identity)
	return id
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, entity.ErrorMsg{Success: false, Message: msg})
}
