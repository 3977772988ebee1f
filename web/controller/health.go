package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/config"
	"github.com/ytschitwan/portal/database"
	"gorm.io/gorm"
)

type HealthController struct {
	db *gorm.DB
}

func NewHealthController(g *gin.RouterGroup, db *gorm.DB) *HealthController {
	a := &HealthController{db: db}
	g.GET("/health", a.health)
	return a
}

// health reports the store as disconnected instead of failing, so the
// endpoint stays usable as a liveness probe.
func (a *HealthController) health(c *gin.Context) {
	dbState := "connected"
	if err := database.Ping(c.Request.Context(), a.db); err != nil {
		dbState = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     config.GetName() + " backend is running",
		"server":      "running",
		"database":    dbState,
		"version":     config.GetVersion(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": config.GetEnvironment(),
	})
}
