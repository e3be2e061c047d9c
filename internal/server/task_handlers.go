package server

import (
	"net/http"

	"github.com/corvid-labs/waggle/internal/task"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type taskCreateRequest struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Priority    int                    `json:"priority"`
	Metadata    map[string]interface{} `json:"metadata"`
	DependsOn   []string               `json:"depends_on"`
	MaxRetries  int                    `json:"max_retries"`
	TimeoutMs   int64                  `json:"timeout_ms"`
}

func handleTaskCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req taskCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		t, err := task.Create(db, task.CreateOpts{
			ID:          req.ID,
			Type:        req.Type,
			Description: req.Description,
			Priority:    req.Priority,
			Metadata:    req.Metadata,
			DependsOn:   req.DependsOn,
			MaxRetries:  req.MaxRetries,
			TimeoutMs:   req.TimeoutMs,
		})
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}

func handleTaskGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := task.Get(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

func handleTaskList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := task.List(db, task.ListFilters{
			Status:        c.Query("status"),
			Type:          c.Query("type"),
			AssignedAgent: c.Query("agent"),
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tasks)
	}
}

func handleTaskReady(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := task.Ready(db)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tasks)
	}
}

func handleTaskAssign(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AgentID string `json:"agent_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		applied, err := task.Assign(db, c.Param("id"), req.AgentID)
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func handleTaskStart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		applied, err := task.MarkInProgress(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func handleTaskProgress(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Percent int `json:"percent"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		applied, err := task.SetProgress(db, c.Param("id"), req.Percent)
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func handleTaskComplete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		applied, err := task.MarkCompleted(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func handleTaskFail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Error string `json:"error"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		applied, err := task.MarkFailed(db, c.Param("id"), req.Error)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func handleTaskRetry(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := task.Retry(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		switch result {
		case task.Retried:
			c.JSON(http.StatusOK, gin.H{"result": "retried"})
		case task.RetryExhausted:
			c.JSON(http.StatusOK, gin.H{"result": "exhausted"})
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		}
	}
}

func handleTaskDelete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := task.Delete(db, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

func handleTaskStats(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := task.StatsByStatus(db)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func handleTaskPerformance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics, err := task.Performance(db)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, metrics)
	}
}

func handleTaskAddDep(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DependsOn string `json:"depends_on"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := task.AddDep(db, c.Param("id"), req.DependsOn); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"added": true})
	}
}

func handleTaskRemoveDep(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := task.RemoveDep(db, c.Param("id"), c.Param("dep")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": true})
	}
}
