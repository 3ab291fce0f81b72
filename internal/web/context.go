package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/csvanomaly/internal/core"
)

// WithRequestMetadata adds client IP and User-Agent to ctx for run history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, r.RemoteAddr) // Already resolved by TrustedRealIP
	ctx = core.ContextWithUserAgent(ctx, r.Header.Get("User-Agent"))
	return ctx
}
