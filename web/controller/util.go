package controller

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/config"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/entity"
	"github.com/ytschitwan/portal/web/service"
)

// getRemoteIp returns the first X-Forwarded-For entry, else the socket address.
func getRemoteIp(c *gin.Context) string {
	value := c.GetHeader("X-Forwarded-For")
	if value != "" {
		ips := strings.Split(value, ",")
		return strings.TrimSpace(ips[0])
	}
	addr := c.Request.RemoteAddr
	ip, _, _ := net.SplitHostPort(addr)
	return ip
}

// paramId reads the :id path parameter. On failure it has already answered 400.
func paramId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		pureJsonMsg(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body. On failure it has already answered 400.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		pureJsonMsg(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func bindPage(c *gin.Context) entity.PageRequest {
	var page entity.PageRequest
	_ = c.ShouldBindQuery(&page)
	return page.Normalize()
}

// jsonOk writes a successful response: the success flag plus the named payload.
func jsonOk(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

func pureJsonMsg(c *gin.Context, statusCode int, msg string) {
	c.JSON(statusCode, entity.ErrorMsg{Success: false, Message: msg})
}

// jsonError maps a service error to its HTTP status. what names the resource
// in not-found messages. Unexpected errors only expose their detail in debug mode.
func jsonError(c *gin.Context, what string, err error) {
	msg := entity.ErrorMsg{Success: false, Message: err.Error()}
	status := http.StatusBadRequest

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		msg.Missing = verr.Missing
		if len(verr.Missing) > 0 {
			msg.Message = "All required fields must be provided"
		}
	case errors.Is(err, service.ErrDuplicateRegistration):
		msg.Code = "duplicate_registration"
		msg.Message = "You are already registered for this event"
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrEmailTaken):
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrUnknownSubject):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrEventNotFound):
		status = http.StatusNotFound
		msg.Message = "Event not found"
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
		msg.Message = what + " not found"
	default:
		status = http.StatusInternalServerError
		msg.Message = "Internal server error"
		if config.IsDebug() {
			msg.Error = err.Error()
		}
		logger.Warningf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, msg)
}
