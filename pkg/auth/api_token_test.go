package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewAPITokenManager([]byte("test-signing-key"), time.Hour)

	token, err := manager.GenerateToken("user-1", "tenant-a", "automations,executions")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.TenantID != "tenant-a" {
		t.Errorf("TenantID = %q, want %q", claims.TenantID, "tenant-a")
	}
	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "user-1")
	}
	if !claims.HasScope("executions") {
		t.Error("HasScope(executions) = false, want true")
	}
	if claims.HasScope("admin") {
		t.Error("HasScope(admin) = true, want false")
	}
}

func TestValidateTokenWrongKey(t *testing.T) {
	manager := NewAPITokenManager([]byte("key-one"), time.Hour)
	other := NewAPITokenManager([]byte("key-two"), time.Hour)

	token, err := manager.GenerateToken("user-1", "tenant-a", "automations")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("ValidateToken() with wrong key succeeded, want error")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	manager := NewAPITokenManager([]byte("test-signing-key"), -time.Minute)

	token, err := manager.GenerateToken("user-1", "tenant-a", "automations")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := manager.ValidateToken(token); err == nil {
		t.Fatal("ValidateToken() on expired token succeeded, want error")
	}
}
