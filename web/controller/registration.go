package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/web/service"
)

type RegistrationController struct {
	registrationService *service.RegistrationService
	access              Access
}

func NewRegistrationController(g *gin.RouterGroup, registrations *service.RegistrationService, access Access) *RegistrationController {
	a := &RegistrationController{registrationService: registrations, access: access}
	a.initRouter(g)
	return a
}

func (a *RegistrationController) initRouter(g *gin.RouterGroup) {
	g = g.Group("/registrations")
	g.GET("", a.access.admin(a.list)...)
	g.PUT("/:id/status", a.access.admin(a.setStatus)...)
	g.DELETE("/:id", a.access.admin(a.delete)...)
}

func (a *RegistrationController) list(c *gin.Context) {
	var eventId *int
	if v := c.Query("eventId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			pureJsonMsg(c, http.StatusBadRequest, "Invalid eventId")
			return
		}
		eventId = &id
	}
	regs, pagination, err := a.registrationService.List(c.Request.Context(), bindPage(c), eventId)
	if err != nil {
		jsonError(c, "Registration", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{
		"registrations": regs,
		"count":         len(regs),
		"pagination":    pagination,
	})
}

type registrationStatusForm struct {
	Status model.RegistrationStatus `json:"status"`
}

func (a *RegistrationController) setStatus(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var form registrationStatusForm
	if !bindJSON(c, &form) {
		return
	}
	reg, err := a.registrationService.SetStatus(c.Request.Context(), id, form.Status)
	if err != nil {
		jsonError(c, "Registration", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"registration": reg})
}

func (a *RegistrationController) delete(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if err := a.registrationService.Delete(c.Request.Context(), id); err != nil {
		jsonError(c, "Registration", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"message": "Registration deleted successfully"})
}
