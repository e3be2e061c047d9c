package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/corvid-labs/waggle/internal/memory"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type memoryCreateRequest struct {
	ID          string   `json:"id"`
	AgentID     string   `json:"agent_id"`
	Kind        string   `json:"kind"`
	Content     string   `json:"content"`
	TaskID      string   `json:"task_id"`
	ObjectiveID string   `json:"objective_id"`
	Tags        []string `json:"tags"`
	Priority    int      `json:"priority"`
	Visibility  string   `json:"visibility"`
}

func handleMemoryCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req memoryCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		e, err := memory.Create(db, memory.CreateOpts{
			ID:          req.ID,
			AgentID:     req.AgentID,
			Kind:        req.Kind,
			Content:     req.Content,
			TaskID:      req.TaskID,
			ObjectiveID: req.ObjectiveID,
			Tags:        req.Tags,
			Priority:    req.Priority,
			Visibility:  req.Visibility,
		})
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

func handleMemoryGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := memory.Get(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// handleMemorySearch serves both structured and text search: a non-empty q
// parameter switches to ranked text search with the same filters.
func handleMemorySearch(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := memory.Filters{
			AgentID:    c.Query("agent"),
			Kind:       c.Query("kind"),
			Visibility: c.Query("visibility"),
			Limit:      parseLimit(c, 50),
		}
		if tags := c.Query("tags"); tags != "" {
			filters.Tags = strings.Split(tags, ",")
		}
		if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
			filters.Offset = offset
		}
		if after := c.Query("after"); after != "" {
			t, err := time.Parse(time.RFC3339, after)
			if err != nil {
				badRequest(c, err)
				return
			}
			filters.CreatedAfter = t
		}
		if until := c.Query("until"); until != "" {
			t, err := time.Parse(time.RFC3339, until)
			if err != nil {
				badRequest(c, err)
				return
			}
			filters.CreatedUntil = t
		}

		if q := c.Query("q"); q != "" {
			entries, err := memory.SearchText(db, q, filters)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, entries)
			return
		}

		entries, err := memory.Search(db, filters)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func handleMemoryRelated(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := memory.Related(db, c.Param("id"), parseLimit(c, 10))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

type memoryUpdateRequest struct {
	Content    *string  `json:"content"`
	Tags       []string `json:"tags"`
	Priority   *int     `json:"priority"`
	Visibility *string  `json:"visibility"`
}

func handleMemoryUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req memoryUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		err := memory.Update(db, c.Param("id"), memory.UpdateOpts{
			Content:    req.Content,
			Tags:       req.Tags,
			Priority:   req.Priority,
			Visibility: req.Visibility,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	}
}

func handleMemoryDelete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := memory.Delete(db, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": 1})
	}
}

func handleMemoryDeleteByAgent(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID := c.Query("agent")
		if agentID == "" {
			badRequest(c, fmt.Errorf("agent query parameter is required"))
			return
		}
		removed, err := memory.DeleteByAgent(db, agentID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": removed})
	}
}

func handleMemoryCleanup(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Days int `json:"days"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		removed, err := memory.CleanupOld(db, req.Days)
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": removed})
	}
}
