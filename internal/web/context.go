package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/csvgenius/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

// WithRequestMetadata adds request ID, IP and User-Agent to context for audit logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithRequestID(ctx, middleware.GetReqID(ctx))
	ctx = core.ContextWithIPAddress(ctx, clientIP(r)) // RemoteAddr already resolved by TrustedRealIP
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
