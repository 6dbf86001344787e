package token

import (
	"context"
	"time"
)

// Info carries the identity and validity extracted from a caller-supplied
// assertion. Two assertions representing the same identity produce equal
// tenant/client/user fields, regardless of the opaque assertion bytes.
type Info struct {
	TenantID string
	ClientID string
	UserID   string
	Expiry   time.Time
}

// Parser extracts identity and expiry from an opaque assertion string.
// Implementations may fail on malformed input; failures are never cached by
// the credential caches and propagate directly to the caller.
type Parser interface {
	ParseToken(ctx context.Context, assertion string) (Info, error)
}
