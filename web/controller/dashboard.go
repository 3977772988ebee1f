package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/web/service"
)

type DashboardController struct {
	dashboardService *service.DashboardService
	access           Access
}

func NewDashboardController(g *gin.RouterGroup, dashboard *service.DashboardService, access Access) *DashboardController {
	a := &DashboardController{dashboardService: dashboard, access: access}
	a.initRouter(g)
	return a
}

func (a *DashboardController) initRouter(g *gin.RouterGroup) {
	g.GET("/dashboard/stats", a.access.admin(a.stats)...)
}

// stats always answers 200; counts that failed are listed in stats.degraded.
func (a *DashboardController) stats(c *gin.Context) {
	jsonOk(c, http.StatusOK, gin.H{"stats": a.dashboardService.GetStats(c.Request.Context())})
}
