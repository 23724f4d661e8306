// ABOUTME: Tests for admin identity propagation through context
// ABOUTME: Covers presence, absence and wrong-type values

package auth

import (
	"context"
	"testing"
)

func TestAdminFromContext(t *testing.T) {
	ctx := WithAdmin(context.Background(), &AdminContext{Subject: "ops"})

	admin := AdminFromContext(ctx)
	if admin == nil || admin.Subject != "ops" {
		t.Fatalf("AdminFromContext() = %+v, want subject ops", admin)
	}
}

func TestAdminFromContext_Missing(t *testing.T) {
	if admin := AdminFromContext(context.Background()); admin != nil {
		t.Errorf("AdminFromContext() = %+v, want nil", admin)
	}

	ctx := context.WithValue(context.Background(), adminContextKey{}, "not-an-admin")
	if admin := AdminFromContext(ctx); admin != nil {
		t.Errorf("AdminFromContext() = %+v, want nil for wrong type", admin)
	}
}
