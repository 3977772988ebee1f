package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/entity"
)

// Recovery is the last error boundary: a panic becomes a generic 500. The
// panic value is only echoed back when debug is set.
func Recovery(debugMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("panic serving %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, r, debug.Stack())
				msg := entity.ErrorMsg{Success: false, Message: "Internal server error"}
				if debugMode {
					msg.Error = fmt.Sprint(r)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, msg)
			}
		}()
		c.Next()
	}
}
