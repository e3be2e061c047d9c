package server

import (
	"net/http"

	"github.com/corvid-labs/waggle/internal/consensus"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type decisionRecordRequest struct {
	ID         string                `json:"id"`
	SwarmID    string                `json:"swarm_id"`
	Topic      string                `json:"topic"`
	Decision   string                `json:"decision"`
	Votes      consensus.VoteSummary `json:"votes"`
	Algorithm  string                `json:"algorithm"`
	Confidence float64               `json:"confidence"`
}

func handleDecisionRecord(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req decisionRecordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		d, err := consensus.Record(db, consensus.RecordOpts{
			ID:         req.ID,
			SwarmID:    req.SwarmID,
			Topic:      req.Topic,
			Decision:   req.Decision,
			Votes:      req.Votes,
			Algorithm:  req.Algorithm,
			Confidence: req.Confidence,
		})
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	}
}

func handleDecisionList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		decisions, err := consensus.List(db, c.Query("swarm"), parseLimit(c, 50))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, decisions)
	}
}

func handleDecisionGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := consensus.Get(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}
