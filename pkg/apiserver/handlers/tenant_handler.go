package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/model"
)

type TenantHandler struct {
	settings SettingsStore
	logger   *zap.Logger
}

func NewTenantHandler(settings SettingsStore, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{settings: settings, logger: logger}
}

type tenantSettingsRequest struct {
	SmsFromNumber      *string     `json:"sms_from_number"`
	EmailSendingDomain *string     `json:"email_sending_domain"`
	EmailFromAddress   *string     `json:"email_from_address"`
	LegacyAutomations  model.JSONB `json:"legacy_automations"`
}

type tenantSettingsResponse struct {
	TenantID           string      `json:"tenant_id"`
	SmsFromNumber      string      `json:"sms_from_number"`
	EmailSendingDomain string      `json:"email_sending_domain"`
	EmailFromAddress   string      `json:"email_from_address"`
	LegacyAutomations  model.JSONB `json:"legacy_automations"`
}

func (h *TenantHandler) GetSettings(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	settings, err := h.settings.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load tenant settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tenant settings"})
		return
	}

	c.JSON(http.StatusOK, mapTenantSettings(settings))
}

func (h *TenantHandler) UpdateSettings(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	var req tenantSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	settings, err := h.settings.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load tenant settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update tenant settings"})
		return
	}

	if req.SmsFromNumber != nil {
		settings.SmsFromNumber = *req.SmsFromNumber
	}
	if req.EmailSendingDomain != nil {
		settings.EmailSendingDomain = *req.EmailSendingDomain
	}
	if req.EmailFromAddress != nil {
		settings.EmailFromAddress = *req.EmailFromAddress
	}
	if req.LegacyAutomations != nil {
		settings.LegacyAutomations = req.LegacyAutomations
	}

	if err := h.settings.Upsert(c.Request.Context(), settings); err != nil {
		h.logger.Error("failed to update tenant settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update tenant settings"})
		return
	}

	c.JSON(http.StatusOK, mapTenantSettings(settings))
}

func mapTenantSettings(settings *model.TenantSettings) tenantSettingsResponse {
	legacy := settings.LegacyAutomations
	if legacy == nil {
		legacy = model.JSONB{}
	}
	return tenantSettingsResponse{
		TenantID:           settings.TenantID.String(),
		SmsFromNumber:      settings.SmsFromNumber,
		EmailSendingDomain: settings.EmailSendingDomain,
		EmailFromAddress:   settings.EmailFromAddress,
		LegacyAutomations:  legacy,
	}
}
