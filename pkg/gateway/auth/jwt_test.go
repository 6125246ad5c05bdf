package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef"

func testManager(t *testing.T) *JWTManager {
	t.Helper()
	manager, err := NewJWTManager(testSecret, "carepulse", "dashboard", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return manager
}

func TestIssueAndValidateToken(t *testing.T) {
	manager := testManager(t)
	user := models.Patient{
		ID:    uuid.New(),
		Name:  "Asha Patel",
		Email: "asha@example.com",
		Role:  models.RolePatient,
	}

	token, err := manager.IssueToken(user)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := manager.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected uid %s, got %s", user.ID, claims.UserID)
	}
	if claims.Role != models.RolePatient || claims.Email != user.Email {
		t.Fatal("claims do not match issued user")
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	manager := testManager(t)
	token, err := manager.IssueToken(models.Patient{ID: uuid.New(), Role: models.RolePatient})
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := manager.ValidateToken(context.Background(), tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}

	other, err := NewJWTManager("another-secret-0123", "carepulse", "dashboard", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected token signed with a different key to be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	manager := testManager(t)
	manager.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := manager.IssueToken(models.Patient{ID: uuid.New()})
	if err != nil {
		t.Fatal(err)
	}

	manager.nowFunc = time.Now
	if _, err := manager.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestNewJWTManagerRejectsWeakSecret(t *testing.T) {
	if _, err := NewJWTManager("short", "carepulse", "dashboard", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}
