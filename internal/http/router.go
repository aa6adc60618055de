package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(handler *Handler, authMiddleware gin.HandlerFunc, env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/tickets", handler.createTicket)
		protected.GET("/tickets", handler.listTickets)
		protected.GET("/tickets/:id", handler.getTicket)
		protected.POST("/tickets/:id/status", handler.advanceStatus)
		protected.POST("/tickets/:id/complete", handler.completeTicket)
		protected.POST("/tickets/:id/reject", handler.rejectTicket)

		protected.POST("/tickets/:id/override", handler.overrideTicket)
		protected.GET("/tickets/:id/audit", handler.getAuditHistory)
		protected.POST("/audit/:id/rollback", handler.rollbackAuditEntry)

		protected.POST("/tickets/:id/assign", handler.assignManually)
		protected.POST("/assignments/sweep", handler.sweepAssignments)
		protected.GET("/technicians", handler.listTechnicians)
		protected.POST("/technicians/:id/unassign-all", handler.unassignAllForTechnician)
		protected.PUT("/technicians/me/presence", handler.setPresence)

		protected.GET("/settings", handler.getSettings)
		protected.PUT("/settings/auto-assign", handler.setAutoAssign)

		protected.GET("/notifications", handler.listNotifications)
		protected.POST("/notifications/:id/read", handler.markNotificationRead)
		protected.POST("/notifications/read-all", handler.markAllNotificationsRead)
		protected.DELETE("/notifications/:id", handler.deleteNotification)
		protected.DELETE("/notifications", handler.deleteAllNotifications)

		protected.POST("/broadcasts", handler.broadcast)
	}

	return router
}
