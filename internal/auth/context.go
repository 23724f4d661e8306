// ABOUTME: Admin identity carried through context for maintenance audit trails
// ABOUTME: Provides WithAdmin/AdminFromContext helpers

package auth

import (
	"context"
	"time"
)

// AdminContext is the verified identity behind a maintenance call.
type AdminContext struct {
	Subject   string
	ExpiresAt time.Time
}

type adminContextKey struct{}

// WithAdmin returns a new context with the admin identity attached.
func WithAdmin(ctx context.Context, admin *AdminContext) context.Context {
	return context.WithValue(ctx, adminContextKey{}, admin)
}

// AdminFromContext returns the admin identity, or nil if none is present.
func AdminFromContext(ctx context.Context) *AdminContext {
	admin, _ := ctx.Value(adminContextKey{}).(*AdminContext)
	return admin
}
