package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/eventbus"
	"github.com/relaycrm/relaycrm/pkg/model"
)

// EventHandler accepts domain events from the CRM surfaces and fans them out
// on the redis bus. The engine process subscribes and routes them against
// published automations.
type EventHandler struct {
	bus    *eventbus.Bus
	logger *zap.Logger
}

func NewEventHandler(bus *eventbus.Bus, logger *zap.Logger) *EventHandler {
	return &EventHandler{bus: bus, logger: logger}
}

type eventRequest struct {
	TenantID  string                 `json:"tenant_id" binding:"required"`
	EventType string                 `json:"event_type" binding:"required"`
	Payload   map[string]interface{} `json:"payload"`
}

func (h *EventHandler) Ingest(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if _, err := uuid.Parse(req.TenantID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	eventType := model.TriggerType(strings.TrimSpace(req.EventType))
	if !isValidTriggerType(eventType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_type"})
		return
	}

	domainEvent := eventbus.DomainEvent{
		TenantID:  req.TenantID,
		EventType: string(eventType),
		Payload:   req.Payload,
	}
	event, err := eventbus.NewEvent(string(eventType), domainEvent)
	if err != nil {
		h.logger.Error("failed to encode domain event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish event"})
		return
	}

	if err := h.bus.Publish(c.Request.Context(), eventbus.ChannelDomain, event); err != nil {
		h.logger.Error("failed to publish domain event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish event"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
