package server

import (
	"net/http"
	"strconv"

	"github.com/corvid-labs/waggle/internal/agent"
	"github.com/corvid-labs/waggle/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type agentRegisterRequest struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Name          string   `json:"name"`
	Capabilities  []string `json:"capabilities"`
	Directive     string   `json:"directive"`
	MaxConcurrent int      `json:"max_concurrent"`
	Priority      int      `json:"priority"`
}

func handleAgentRegister(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req agentRegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		a, err := agent.Register(db, agent.RegisterOpts{
			ID:            req.ID,
			Type:          req.Type,
			Name:          req.Name,
			Capabilities:  req.Capabilities,
			Directive:     req.Directive,
			MaxConcurrent: req.MaxConcurrent,
			Priority:      req.Priority,
		})
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

func handleAgentGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := agent.Get(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

func handleAgentList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			agents []models.Agent
			err    error
		)
		switch {
		case c.Query("type") != "":
			agents, err = agent.ListByType(db, c.Query("type"))
		case c.Query("status") != "":
			agents, err = agent.ListByStatus(db, c.Query("status"))
		default:
			agents, err = agent.ListByStatus(db, models.AgentStatusIdle)
		}
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, agents)
	}
}

func handleAgentAvailable(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		agents, err := agent.ListAvailable(db, limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, agents)
	}
}

type agentUpdateRequest struct {
	Name          *string  `json:"name"`
	Status        *string  `json:"status"`
	Capabilities  []string `json:"capabilities"`
	Directive     *string  `json:"directive"`
	MaxConcurrent *int     `json:"max_concurrent"`
	Priority      *int     `json:"priority"`
}

func handleAgentUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req agentUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		err := agent.Update(db, c.Param("id"), agent.UpdateOpts{
			Name:          req.Name,
			Status:        req.Status,
			Capabilities:  req.Capabilities,
			Directive:     req.Directive,
			MaxConcurrent: req.MaxConcurrent,
			Priority:      req.Priority,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	}
}

func handleAgentMetrics(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Completed  bool  `json:"completed"`
			DurationMs int64 `json:"duration_ms"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := agent.IncrementMetrics(db, c.Param("id"), req.Completed, req.DurationMs); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	}
}

func handleAgentDelete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := agent.Delete(db, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

func handleAgentStats(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := agent.Performance(db)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
