package leadapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type authorizationKey struct{}

// WithAuthorization forwards the caller's Authorization header to the store.
func WithAuthorization(ctx context.Context, header string) context.Context {
	header = strings.TrimSpace(header)
	if header == "" {
		return ctx
	}
	return context.WithValue(ctx, authorizationKey{}, header)
}

func authorizationFromContext(ctx context.Context) string {
	value, _ := ctx.Value(authorizationKey{}).(string)
	return value
}

// CallerKey fingerprints the forwarded credentials so results fetched for one
// caller are never handed to another. Empty when no header was forwarded.
func CallerKey(ctx context.Context) string {
	header := authorizationFromContext(ctx)
	if header == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(header))
	return hex.EncodeToString(sum[:8])
}
