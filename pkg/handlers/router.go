package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/rota-matcher/internal/metrics"
)

// Version is reported by the root route.
const Version = "1.0.0"

// NewRouter registers every route on a new engine. The server binary and
// the serverless entry point share it.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Admin interface - serve static files from embedded FS
	r.StaticFS("/static", h.GetStaticFS())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Rota Matcher API",
			"version": Version,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/admin", h.AdminInterface)
	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/schedule", h.ScheduleJSON)
		api.POST("/schedule/csv", h.ScheduleCSV)
		api.POST("/schedule/batch", h.ScheduleBatch)
		api.POST("/schedule/stored", h.ScheduleStored)
		api.POST("/roster/import", h.ImportRoster)
		api.GET("/schedules/:id", h.GetSchedule)
		api.GET("/schedules/:id/xlsx", h.GetScheduleXLSX)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}
