package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/engine"
	"github.com/relaycrm/relaycrm/pkg/model"
)

type ExecutionHandler struct {
	executions ExecutionStore
	logger     *zap.Logger
}

func NewExecutionHandler(executions ExecutionStore, logger *zap.Logger) *ExecutionHandler {
	return &ExecutionHandler{executions: executions, logger: logger}
}

type executionDetailResponse struct {
	executionResponse
	TriggerData model.JSONB `json:"trigger_data"`
	Graph       model.Graph `json:"graph"`
}

func (h *ExecutionHandler) Get(c *gin.Context) {
	executionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	exec, err := h.executions.GetByID(c.Request.Context(), executionID)
	if err != nil {
		if errors.Is(err, engine.ErrExecutionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
			return
		}
		h.logger.Error("failed to load execution", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load execution"})
		return
	}

	detail := executionDetailResponse{
		executionResponse: mapExecution(exec),
		TriggerData:       exec.TriggerData,
		Graph:             exec.Graph,
	}

	c.JSON(http.StatusOK, detail)
}
