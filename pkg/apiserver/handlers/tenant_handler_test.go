package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTenantRouter(settings *memSettingsStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewTenantHandler(settings, zap.NewNop())

	r := gin.New()
	r.GET("/tenants/:id/settings", handler.GetSettings)
	r.PUT("/tenants/:id/settings", handler.UpdateSettings)
	return r
}

func TestTenantSettingsRoundTrip(t *testing.T) {
	store := newMemSettingsStore()
	router := newTenantRouter(store)
	tenantID := uuid.New().String()

	payload, _ := json.Marshal(map[string]interface{}{
		"sms_from_number": "+15550001111",
		"legacy_automations": map[string]interface{}{
			"call.missed": map[string]interface{}{
				"enabled":     true,
				"action_type": "send_sms",
				"template":    "sorry we missed you",
			},
		},
	})
	req := httptest.NewRequest(http.MethodPut, "/tenants/"+tenantID+"/settings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/tenants/"+tenantID+"/settings", nil)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var response tenantSettingsResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.SmsFromNumber != "+15550001111" {
		t.Fatalf("expected sms number to persist, got %q", response.SmsFromNumber)
	}
	if _, ok := response.LegacyAutomations["call.missed"]; !ok {
		t.Fatal("expected legacy automation to persist")
	}
}

func TestGetSettingsForUnknownTenantReturnsDefaults(t *testing.T) {
	router := newTenantRouter(newMemSettingsStore())
	tenantID := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/tenants/"+tenantID+"/settings", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var response tenantSettingsResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.TenantID != tenantID {
		t.Fatalf("expected tenant id %s, got %s", tenantID, response.TenantID)
	}
	if response.SmsFromNumber != "" {
		t.Fatalf("expected empty defaults, got %q", response.SmsFromNumber)
	}
}
