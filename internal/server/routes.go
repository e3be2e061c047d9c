package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes sets up the full operation surface on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	tasks := api.Group("/tasks")
	tasks.POST("", handleTaskCreate(db))
	tasks.GET("", handleTaskList(db))
	tasks.GET("/ready", handleTaskReady(db))
	tasks.GET("/stats", handleTaskStats(db))
	tasks.GET("/performance", handleTaskPerformance(db))
	tasks.GET("/:id", handleTaskGet(db))
	tasks.DELETE("/:id", handleTaskDelete(db))
	tasks.POST("/:id/assign", handleTaskAssign(db))
	tasks.POST("/:id/start", handleTaskStart(db))
	tasks.POST("/:id/progress", handleTaskProgress(db))
	tasks.POST("/:id/complete", handleTaskComplete(db))
	tasks.POST("/:id/fail", handleTaskFail(db))
	tasks.POST("/:id/retry", handleTaskRetry(db))
	tasks.POST("/:id/deps", handleTaskAddDep(db))
	tasks.DELETE("/:id/deps/:dep", handleTaskRemoveDep(db))

	agents := api.Group("/agents")
	agents.POST("", handleAgentRegister(db))
	agents.GET("", handleAgentList(db))
	agents.GET("/available", handleAgentAvailable(db))
	agents.GET("/stats", handleAgentStats(db))
	agents.GET("/:id", handleAgentGet(db))
	agents.PATCH("/:id", handleAgentUpdate(db))
	agents.DELETE("/:id", handleAgentDelete(db))
	agents.POST("/:id/metrics", handleAgentMetrics(db))

	messages := api.Group("/messages")
	messages.POST("", handleMessagePublish(db))
	messages.GET("", handleMessageList(db))
	messages.GET("/expired", handleMessageExpired(db))
	messages.GET("/unacknowledged", handleMessageUnacked(db))
	messages.GET("/stats", handleMessageStats(db))
	messages.POST("/acknowledge", handleMessageAckBulk(db))
	messages.POST("/cleanup", handleMessageCleanup(db))
	messages.GET("/:id", handleMessageGet(db))
	messages.GET("/:id/delivery", handleMessageDelivery(db))
	messages.POST("/:id/acknowledge", handleMessageAck(db))

	decisions := api.Group("/decisions")
	decisions.POST("", handleDecisionRecord(db))
	decisions.GET("", handleDecisionList(db))
	decisions.GET("/:id", handleDecisionGet(db))

	mem := api.Group("/memory")
	mem.POST("", handleMemoryCreate(db))
	mem.DELETE("", handleMemoryDeleteByAgent(db))
	mem.GET("/search", handleMemorySearch(db))
	mem.POST("/cleanup", handleMemoryCleanup(db))
	mem.GET("/:id", handleMemoryGet(db))
	mem.PATCH("/:id", handleMemoryUpdate(db))
	mem.DELETE("/:id", handleMemoryDelete(db))
	mem.GET("/:id/related", handleMemoryRelated(db))

	objectives := api.Group("/objectives")
	objectives.POST("", handleObjectiveCreate(db))
	objectives.GET("", handleObjectiveList(db))
	objectives.GET("/stats", handleObjectiveStats(db))
	objectives.GET("/:id", handleObjectiveGet(db))
	objectives.DELETE("/:id", handleObjectiveDelete(db))
	objectives.GET("/:id/progress", handleObjectiveProgress(db))
	objectives.POST("/:id/tasks", handleObjectiveAttach(db))
	objectives.DELETE("/:id/tasks/:taskID", handleObjectiveDetach(db))
	objectives.POST("/:id/reorder", handleObjectiveReorder(db))
	objectives.POST("/:id/complete", handleObjectiveComplete(db))
	objectives.POST("/:id/fail", handleObjectiveFail(db))
}
