package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/web/service"
)

// RequireRole must run after AuthRequired. It is the only role check in the
// router; every admin group uses it.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := service.RequireRole(GetIdentity(c), role)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, service.ErrForbidden):
			abortJSON(c, http.StatusForbidden, "Admin access required")
		default:
			abortJSON(c, http.StatusUnauthorized, "Not authenticated")
		}
	}
}
