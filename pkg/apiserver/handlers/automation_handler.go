package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/engine"
	"github.com/relaycrm/relaycrm/pkg/graph"
	"github.com/relaycrm/relaycrm/pkg/model"
)

type AutomationHandler struct {
	definitions DefinitionStore
	executions  ExecutionStore
	logger      *zap.Logger
}

func NewAutomationHandler(definitions DefinitionStore, executions ExecutionStore, logger *zap.Logger) *AutomationHandler {
	return &AutomationHandler{definitions: definitions, executions: executions, logger: logger}
}

type automationCreateRequest struct {
	TenantID    string       `json:"tenant_id" binding:"required"`
	Name        string       `json:"name" binding:"required"`
	TriggerType string       `json:"trigger_type" binding:"required"`
	Graph       *model.Graph `json:"graph"`
}

type automationUpdateRequest struct {
	Name  *string      `json:"name"`
	Graph *model.Graph `json:"graph"`
}

type automationResponse struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	TriggerType string `json:"trigger_type"`
	Status      string `json:"status"`
	Version     int    `json:"version"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type automationDetailResponse struct {
	automationResponse
	Graph model.Graph `json:"graph"`
}

type executionResponse struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenant_id"`
	DefinitionID  *string `json:"definition_id,omitempty"`
	Version       int     `json:"version"`
	TriggerType   string  `json:"trigger_type"`
	Status        string  `json:"status"`
	CurrentNodeID string  `json:"current_node_id,omitempty"`
	WakeAt        *string `json:"wake_at,omitempty"`
	Attempt       int     `json:"attempt"`
	NextAttemptAt *string `json:"next_attempt_at,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	StartedAt     string  `json:"started_at"`
	FinishedAt    *string `json:"finished_at,omitempty"`
}

func (h *AutomationHandler) Create(c *gin.Context) {
	var req automationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	trigger := model.TriggerType(strings.TrimSpace(req.TriggerType))
	if !isValidTriggerType(trigger) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger_type"})
		return
	}

	def := &model.AutomationDefinition{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        req.Name,
		TriggerType: trigger,
		Status:      model.AutomationDraft,
	}
	if req.Graph != nil {
		def.Graph = *req.Graph
	}

	if err := h.definitions.Create(c.Request.Context(), def); err != nil {
		h.logger.Error("failed to create automation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create automation"})
		return
	}

	c.JSON(http.StatusCreated, mapAutomationDetail(def))
}

func (h *AutomationHandler) List(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}
	tenantUUID, err := uuid.Parse(tenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	limit := parseLimit(c.Query("limit"), 20)
	offset := parseOffset(c.Query("offset"))

	defs, total, err := h.definitions.List(c.Request.Context(), tenantUUID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list automations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list automations"})
		return
	}

	response := make([]automationResponse, 0, len(defs))
	for i := range defs {
		response = append(response, mapAutomation(&defs[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"automations": response,
		"total":       total,
	})
}

func (h *AutomationHandler) Get(c *gin.Context) {
	def, ok := h.loadDefinition(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, mapAutomationDetail(def))
}

func (h *AutomationHandler) Update(c *gin.Context) {
	def, ok := h.loadDefinition(c)
	if !ok {
		return
	}

	var req automationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = name
		def.Name = name
	}
	if req.Graph != nil {
		updates["graph"] = *req.Graph
		def.Graph = *req.Graph
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.definitions.Update(c.Request.Context(), def.ID, updates); err != nil {
		h.logger.Error("failed to update automation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update automation"})
		return
	}

	c.JSON(http.StatusOK, mapAutomationDetail(def))
}

// Publish validates the draft graph, snapshots it into an immutable version
// and flips the definition to PUBLISHED. A definition with an invalid graph
// can be saved as draft but never published.
func (h *AutomationHandler) Publish(c *gin.Context) {
	def, ok := h.loadDefinition(c)
	if !ok {
		return
	}

	if err := graph.Validate(def.Graph); err != nil {
		if errors.Is(err, graph.ErrInvalidGraph) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid graph", "details": err.Error()})
			return
		}
		h.logger.Error("failed to validate graph", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish automation"})
		return
	}

	version, err := h.definitions.Publish(c.Request.Context(), def.ID)
	if err != nil {
		if errors.Is(err, engine.ErrDefinitionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "automation not found"})
			return
		}
		h.logger.Error("failed to publish automation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish automation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  string(model.AutomationPublished),
		"version": version.Version,
	})
}

func (h *AutomationHandler) Archive(c *gin.Context) {
	definitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid automation id"})
		return
	}

	if err := h.definitions.Archive(c.Request.Context(), definitionID); err != nil {
		if errors.Is(err, engine.ErrDefinitionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "automation not found"})
			return
		}
		h.logger.Error("failed to archive automation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to archive automation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}

func (h *AutomationHandler) ListExecutions(c *gin.Context) {
	definitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid automation id"})
		return
	}

	var status *model.ExecutionStatus
	if statusValue := strings.TrimSpace(c.Query("status")); statusValue != "" {
		parsed := model.ExecutionStatus(statusValue)
		if !isValidExecutionStatus(parsed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		status = &parsed
	}

	limit := parseLimit(c.Query("limit"), 20)
	offset := parseOffset(c.Query("offset"))

	executions, total, err := h.executions.ListByDefinition(c.Request.Context(), definitionID, status, limit, offset)
	if err != nil {
		h.logger.Error("failed to list executions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list executions"})
		return
	}

	response := make([]executionResponse, 0, len(executions))
	for i := range executions {
		response = append(response, mapExecution(&executions[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"executions": response,
		"total":      total,
	})
}

func (h *AutomationHandler) loadDefinition(c *gin.Context) (*model.AutomationDefinition, bool) {
	definitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid automation id"})
		return nil, false
	}

	def, err := h.definitions.GetByID(c.Request.Context(), definitionID)
	if err != nil {
		if errors.Is(err, engine.ErrDefinitionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "automation not found"})
			return nil, false
		}
		h.logger.Error("failed to load automation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load automation"})
		return nil, false
	}

	return def, true
}

func mapAutomation(def *model.AutomationDefinition) automationResponse {
	return automationResponse{
		ID:          def.ID.String(),
		TenantID:    def.TenantID.String(),
		Name:        def.Name,
		TriggerType: string(def.TriggerType),
		Status:      string(def.Status),
		Version:     def.Version,
		CreatedAt:   def.CreatedAt.UTC().Format(timeRFC3339Nano),
		UpdatedAt:   def.UpdatedAt.UTC().Format(timeRFC3339Nano),
	}
}

func mapAutomationDetail(def *model.AutomationDefinition) automationDetailResponse {
	return automationDetailResponse{
		automationResponse: mapAutomation(def),
		Graph:              def.Graph,
	}
}

func mapExecution(exec *model.Execution) executionResponse {
	response := executionResponse{
		ID:            exec.ID.String(),
		TenantID:      exec.TenantID.String(),
		Version:       exec.Version,
		TriggerType:   string(exec.TriggerType),
		Status:        string(exec.Status),
		CurrentNodeID: exec.CurrentNodeID,
		WakeAt:        formatTime(exec.WakeAt),
		Attempt:       exec.Attempt,
		NextAttemptAt: formatTime(exec.NextAttemptAt),
		ErrorMessage:  exec.ErrorMessage,
		StartedAt:     exec.StartedAt.UTC().Format(timeRFC3339Nano),
		FinishedAt:    formatTime(exec.FinishedAt),
	}
	if exec.DefinitionID != nil {
		id := exec.DefinitionID.String()
		response.DefinitionID = &id
	}
	return response
}

func isValidTriggerType(trigger model.TriggerType) bool {
	switch trigger {
	case model.TriggerContactCreated, model.TriggerFormSubmitted, model.TriggerCallMissed,
		model.TriggerOpportunityStage, model.TriggerAppointmentBooked:
		return true
	default:
		return false
	}
}

func isValidExecutionStatus(status model.ExecutionStatus) bool {
	switch status {
	case model.ExecutionRunning, model.ExecutionCompleted, model.ExecutionFailed:
		return true
	default:
		return false
	}
}
