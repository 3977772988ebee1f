package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/web/service"
)

type ContactController struct {
	contactService *service.ContactService
	access         Access
}

func NewContactController(g *gin.RouterGroup, contacts *service.ContactService, access Access, limit gin.HandlerFunc) *ContactController {
	a := &ContactController{contactService: contacts, access: access}
	a.initRouter(g, limit)
	return a
}

func (a *ContactController) initRouter(g *gin.RouterGroup, limit gin.HandlerFunc) {
	g = g.Group("/contacts")
	g.POST("", limit, a.submit)

	g.GET("", a.access.admin(a.list)...)
	g.GET("/:id", a.access.admin(a.get)...)
	g.PUT("/:id/status", a.access.admin(a.setStatus)...)
	g.DELETE("/:id", a.access.admin(a.delete)...)
}

// submit answers 201 when the message was stored and 202 when it was only
// acknowledged because the store is unavailable.
func (a *ContactController) submit(c *gin.Context) {
	var in service.ContactInput
	if !bindJSON(c, &in) {
		return
	}
	meta := service.RequestMeta{
		IpAddress: getRemoteIp(c),
		UserAgent: c.GetHeader("User-Agent"),
	}
	res, err := a.contactService.Submit(c.Request.Context(), in, meta)
	if err != nil {
		jsonError(c, "Contact", err)
		return
	}
	if !res.Persisted {
		jsonOk(c, http.StatusAccepted, gin.H{
			"message":   "Message received but could not be saved. Please try again later",
			"data":      res.Contact,
			"persisted": false,
		})
		return
	}
	jsonOk(c, http.StatusCreated, gin.H{
		"message":   "Message sent successfully",
		"data":      res.Contact,
		"persisted": true,
	})
}

func (a *ContactController) list(c *gin.Context) {
	status := model.ContactStatus(c.Query("status"))
	contacts, pagination, err := a.contactService.List(c.Request.Context(), bindPage(c), status)
	if err != nil {
		jsonError(c, "Contact", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"contacts": contacts, "pagination": pagination})
}

func (a *ContactController) get(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	contact, err := a.contactService.Get(c.Request.Context(), id)
	if err != nil {
		jsonError(c, "Contact", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"contact": contact})
}

type contactStatusForm struct {
	Status model.ContactStatus `json:"status"`
}

func (a *ContactController) setStatus(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var form contactStatusForm
	if !bindJSON(c, &form) {
		return
	}
	contact, err := a.contactService.SetStatus(c.Request.Context(), id, form.Status)
	if err != nil {
		jsonError(c, "Contact", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"contact": contact})
}

func (a *ContactController) delete(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if err := a.contactService.Delete(c.Request.Context(), id); err != nil {
		jsonError(c, "Contact", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"message": "Contact deleted"})
}
