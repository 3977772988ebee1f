package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/web/service"
)

// EventController serves the public event listing, event registration and
// the admin event management routes.
type EventController struct {
	eventService        *service.EventService
	registrationService *service.RegistrationService
	access              Access
}

func NewEventController(g *gin.RouterGroup, events *service.EventService, registrations *service.RegistrationService, access Access, limit gin.HandlerFunc) *EventController {
	a := &EventController{
		eventService:        events,
		registrationService: registrations,
		access:              access,
	}
	a.initRouter(g, limit)
	return a
}

func (a *EventController) initRouter(g *gin.RouterGroup, limit gin.HandlerFunc) {
	events := g.Group("/events")
	events.GET("", a.listActive)
	events.GET("/:id", a.get)
	events.POST("/:id/register", limit, a.register)

	events.POST("", a.access.admin(a.create)...)
	events.PUT("/:id", a.access.admin(a.update)...)
	events.DELETE("/:id", a.access.admin(a.delete)...)
	events.GET("/:id/registrations", a.access.admin(a.registrations)...)

	g.GET("/admin/events", a.access.admin(a.listAll)...)
}

// eventForm is the JSON body of event create and update. Date accepts RFC 3339
// or a plain calendar date.
type eventForm struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Date        *string              `json:"date"`
	Location    *string              `json:"location"`
	Category    *model.EventCategory `json:"category"`
	Image       *string              `json:"image"`
	IsActive    *bool                `json:"isActive"`
	Capacity    *int                 `json:"capacity"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (f eventForm) input() (service.EventInput, bool) {
	in := service.EventInput{
		Title:       f.Title,
		Description: f.Description,
		Location:    f.Location,
		Category:    f.Category,
		Image:       f.Image,
		IsActive:    f.IsActive,
		Capacity:    f.Capacity,
	}
	if f.Date != nil {
		t, ok := parseDate(*f.Date)
		if !ok {
			return in, false
		}
		in.Date = &t
	}
	return in, true
}

func (a *EventController) bindEvent(c *gin.Context) (service.EventInput, bool) {
	var form eventForm
	if !bindJSON(c, &form) {
		return service.EventInput{}, false
	}
	in, ok := form.input()
	if !ok {
		pureJsonMsg(c, http.StatusBadRequest, "Invalid date")
	}
	return in, ok
}

func (a *EventController) listActive(c *gin.Context) {
	events, err := a.eventService.ListActiveEvents(c.Request.Context())
	if err != nil {
		jsonError(c, "Event", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (a *EventController) listAll(c *gin.Context) {
	events, pagination, err := a.eventService.ListEvents(c.Request.Context(), bindPage(c))
	if err != nil {
		jsonError(c, "Event", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"events": events, "pagination": pagination})
}

func (a *EventController) get(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	event, err := a.eventService.GetEvent(c.Request.Context(), id)
	if err != nil {
		jsonError(c, "Event", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"event": event})
}

func (a *EventController) register(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var in service.RegistrationInput
	if !bindJSON(c, &in) {
		return
	}
	reg, err := a.registrationService.Register(c.Request.Context(), id, in)
	if err != nil {
		jsonError(c, "Event", err)
		return
	}
	jsonOk(c, http.StatusCreated, gin.H{
		"message":      "Registration successful",
		"registration": reg,
	})
}

func (a *EventController) create(c *gin.Context) {
	in, ok := a.bindEvent(c)
	if !ok {
		return
	}
	event, err := a.eventService.CreateEvent(c.Request.Context(), in)
	if err != nil {
		jsonError(c, "Event", err)
		return
	}
	jsonOk(c, http.StatusCreated, gin.H{"event": event})
}

func (a *EventController) update(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	in, ok := a.bindEvent(c)
	if !ok {
		return
	}
	event, err := a.eventService.UpdateEvent(c.Request.Context(), id, in)
	if err != nil {
		jsonError(c, "Event", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"event": event})
}

func (a *EventController) delete(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	if err := a.eventService.DeleteEvent(c.Request.Context(), id); err != nil {
		jsonError(c, "Event", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"message": "Event deleted"})
}

// registrations lists an event's registrations. With ?email= it returns only
// the matching registration, if any.
func (a *EventController) registrations(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if email := c.Query("email"); email != "" {
		reg, err := a.registrationService.Lookup(ctx, id, email)
		if err != nil {
			jsonError(c, "Registration", err)
			return
		}
		jsonOk(c, http.StatusOK, gin.H{"registration": reg})
		return
	}
	regs, err := a.registrationService.ListByEvent(ctx, id)
	if err != nil {
		jsonError(c, "Event", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"registrations": regs, "count": len(regs)})
}
