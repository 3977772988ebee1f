package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/service"
)

// AdminController serves the back-office user list, the audit trail and the
// in-memory log buffer.
type AdminController struct {
	userService  *service.UserAdminService
	auditService *service.AuditLogService
	access       Access
}

func NewAdminController(g *gin.RouterGroup, users *service.UserAdminService, audit *service.AuditLogService, access Access) *AdminController {
	a := &AdminController{userService: users, auditService: audit, access: access}
	a.initRouter(g)
	return a
}

func (a *AdminController) initRouter(g *gin.RouterGroup) {
	g = g.Group("/admin")
	g.GET("/users", a.access.admin(a.users)...)
	g.GET("/users/:id", a.access.admin(a.user)...)
	g.GET("/audit", a.access.admin(a.audit)...)
	g.GET("/logs", a.access.admin(a.logs)...)
}

func (a *AdminController) users(c *gin.Context) {
	users, pagination, err := a.userService.ListUsers(c.Request.Context(), bindPage(c))
	if err != nil {
		jsonError(c, "User", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"users": users, "pagination": pagination})
}

func (a *AdminController) user(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	user, err := a.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		jsonError(c, "User", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"user": user})
}

func (a *AdminController) audit(c *gin.Context) {
	logs, pagination, err := a.auditService.GetAuditLogs(c.Request.Context(), bindPage(c), c.Query("action"), c.Query("resource"))
	if err != nil {
		jsonError(c, "Audit log", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"logs": logs, "pagination": pagination})
}

func (a *AdminController) logs(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "100"))
	if err != nil || count <= 0 {
		count = 100
	}
	jsonOk(c, http.StatusOK, gin.H{"logs": logger.GetLogs(count, c.DefaultQuery("level", "info"))})
}
