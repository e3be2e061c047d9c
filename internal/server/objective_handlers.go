package server

import (
	"net/http"

	"github.com/corvid-labs/waggle/internal/models"
	"github.com/corvid-labs/waggle/internal/objective"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type objectiveCreateRequest struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Strategy    string `json:"strategy"`
}

func handleObjectiveCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req objectiveCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		o, err := objective.Create(db, objective.CreateOpts{
			ID:          req.ID,
			Description: req.Description,
			Strategy:    req.Strategy,
		})
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

func handleObjectiveList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			objectives []models.Objective
			err        error
		)
		if status := c.Query("status"); status != "" {
			objectives, err = objective.ListByStatus(db, status)
		} else {
			objectives, err = objective.ListActive(db)
		}
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, objectives)
	}
}

func handleObjectiveGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := objective.Get(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func handleObjectiveDelete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := objective.Delete(db, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

func handleObjectiveProgress(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		percent, err := objective.Progress(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"percent": percent})
	}
}

type objectiveAttachRequest struct {
	TaskID  string   `json:"task_id"`
	TaskIDs []string `json:"task_ids"`
	Order   int      `json:"order"`
}

func handleObjectiveAttach(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req objectiveAttachRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		var err error
		if len(req.TaskIDs) > 0 {
			err = objective.AttachTasks(db, c.Param("id"), req.TaskIDs)
		} else {
			err = objective.AttachTask(db, c.Param("id"), req.TaskID, req.Order)
		}
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"attached": true})
	}
}

func handleObjectiveDetach(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := objective.DetachTask(db, c.Param("id"), c.Param("taskID")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"detached": true})
	}
}

func handleObjectiveReorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TaskIDs []string `json:"task_ids"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := objective.Reorder(db, c.Param("id"), req.TaskIDs); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reordered": true})
	}
}

func handleObjectiveComplete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		applied, err := objective.MarkCompleted(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func handleObjectiveFail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		applied, err := objective.MarkFailed(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func handleObjectiveStats(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := objective.ComputeStats(db)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
