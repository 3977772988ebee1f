package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/web/service"
)

// AuditMiddleware records successful admin mutations. It must run after AuthRequired.
func AuditMiddleware(auditService *service.AuditLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		action := actionFromMethod(c.Request.Method)
		if action == "" || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		identity := GetIdentity(c)
		if identity == nil {
			return
		}

		resource := resourceFromPath(c.FullPath())
		resourceID, _ := strconv.Atoi(c.Param("id"))
		details := map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}

		// Failures are logged by the service and never affect the response.
		_ = auditService.LogAction(c.Request.Context(), service.AuditEntry{
			Identity:   identity,
			Action:     action,
			Resource:   resource,
			ResourceId: resourceID,
			RequestId:  GetRequestID(c),
			Ip:         c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
			Details:    details,
		})
	}
}

func actionFromMethod(method string) string {
	switch method {
	case http.MethodPost:
		return "CREATE"
	case http.MethodPut, http.MethodPatch:
		return "UPDATE"
	case http.MethodDelete:
		return "DELETE"
	}
	return ""
}

// resourceFromPath maps a route pattern such as /api/contacts/:id/status to "contact".
func resourceFromPath(fullPath string) string {
	switch {
	case strings.Contains(fullPath, "/registrations"):
		return "registration"
	case strings.Contains(fullPath, "/contacts"):
		return "contact"
	case strings.Contains(fullPath, "/events"):
		return "event"
	case strings.Contains(fullPath, "/users"):
		return "user"
	}
	return "unknown"
}
