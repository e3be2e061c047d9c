package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/corvid-labs/waggle/internal/messaging"
	"github.com/corvid-labs/waggle/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type messagePublishRequest struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Sender        string   `json:"sender"`
	Receivers     []string `json:"receivers"`
	Content       string   `json:"content"`
	ContentType   string   `json:"content_type"`
	Priority      string   `json:"priority"`
	Reliability   string   `json:"reliability"`
	CorrelationID string   `json:"correlation_id"`
	ReplyTo       string   `json:"reply_to"`
	Route         []string `json:"route"`
	TTLMs         int64    `json:"ttl_ms"`
}

func handleMessagePublish(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req messagePublishRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		msg, err := messaging.Publish(db, messaging.PublishOpts{
			ID:            req.ID,
			Type:          req.Type,
			Sender:        req.Sender,
			Receivers:     req.Receivers,
			Content:       req.Content,
			ContentType:   req.ContentType,
			Priority:      req.Priority,
			Reliability:   req.Reliability,
			CorrelationID: req.CorrelationID,
			ReplyTo:       req.ReplyTo,
			Route:         req.Route,
			TTLMs:         req.TTLMs,
		})
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

func handleMessageGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := messaging.Get(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

func handleMessageList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			msgs []models.Message
			err  error
		)
		switch {
		case c.Query("sender") != "":
			msgs, err = messaging.ListBySender(db, c.Query("sender"))
		case c.Query("receiver") != "":
			msgs, err = messaging.ListByReceiver(db, c.Query("receiver"))
		case c.Query("type") != "":
			msgs, err = messaging.ListByType(db, c.Query("type"))
		case c.Query("correlation_id") != "":
			msgs, err = messaging.ListByCorrelation(db, c.Query("correlation_id"))
		default:
			badRequest(c, fmt.Errorf("one of sender, receiver, type, correlation_id is required"))
			return
		}
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func handleMessageExpired(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := messaging.FindExpired(db)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func handleMessageUnacked(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID := c.Query("agent")
		if agentID == "" {
			badRequest(c, fmt.Errorf("agent query parameter is required"))
			return
		}
		msgs, err := messaging.FindUnacknowledged(db, agentID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func handleMessageAck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AgentID string `json:"agent_id"`
			Status  string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if req.Status == "" {
			req.Status = models.AckAccepted
		}
		applied, err := messaging.Acknowledge(db, c.Param("id"), req.AgentID, req.Status)
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func handleMessageAckBulk(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			MessageIDs []string `json:"message_ids"`
			AgentID    string   `json:"agent_id"`
			Status     string   `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if req.Status == "" {
			req.Status = models.AckAccepted
		}
		applied, err := messaging.AcknowledgeBulk(db, req.MessageIDs, req.AgentID, req.Status)
		if err != nil {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func handleMessageDelivery(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := messaging.Delivery(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func handleMessageCleanup(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Days int `json:"days"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		expired, err := messaging.CleanupExpired(db)
		if err != nil {
			fail(c, err)
			return
		}
		var old int64
		if req.Days > 0 {
			old, err = messaging.CleanupOld(db, req.Days)
			if err != nil {
				fail(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"expired": expired, "old": old})
	}
}

func handleMessageStats(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := messaging.ComputeStats(db)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// parseLimit reads a limit query parameter with a default.
func parseLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}
