package routes

import (
	"github.com/gin-gonic/gin"

	"reefwatch/alerts"
	"reefwatch/handlers"
	"reefwatch/notify"
)

func SetupRouter(alertSvc *alerts.Service, notifySvc *notify.Service) *gin.Engine {
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Hello, welcome to Smart Coral Diagnostics!",
		})
	})

	// api routes
	api := r.Group("/api/reefwatch")
	{
		api.POST("/alerts/generate", func(c *gin.Context) {
			handlers.GenerateAlertsHandler(c, alertSvc)
		})
		api.GET("/alerts", func(c *gin.Context) {
			handlers.ListAlertsHandler(c, alertSvc)
		})
		api.GET("/alerts/summary", func(c *gin.Context) {
			handlers.GetAlertSummaryHandler(c, alertSvc)
		})
		api.GET("/alerts/:id", func(c *gin.Context) {
			handlers.GetAlertHandler(c, alertSvc)
		})
		api.POST("/alerts/:id/resolve", func(c *gin.Context) {
			handlers.ResolveAlertHandler(c, alertSvc)
		})
		api.DELETE("/alerts/:id", func(c *gin.Context) {
			handlers.DeleteAlertHandler(c, alertSvc)
		})

		api.POST("/notifications/check", func(c *gin.Context) {
			handlers.CheckThresholdsHandler(c, notifySvc)
		})
		api.POST("/notifications/digest/:period", func(c *gin.Context) {
			handlers.SendDigestHandler(c, notifySvc)
		})
	}

	return r
}
