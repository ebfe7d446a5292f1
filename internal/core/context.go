package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "audit_ip"
	ctxKeyUserAgent contextKey = "audit_ua"
	ctxKeyRequestID contextKey = "audit_request_id"
	ctxKeyFileName  contextKey = "audit_file_name"
)

// ContextWithIPAddress adds IP address to context for audit logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent adds User-Agent to context for audit logging.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// ContextWithRequestID adds the request ID to context for audit logging.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// ContextWithFileName records the client-supplied upload name. Only the
// name is kept, never the contents.
func ContextWithFileName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyFileName, name)
}

// GetIPAddressFromContext extracts IP address from context.
func GetIPAddressFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyIPAddress)
}

// GetUserAgentFromContext extracts User-Agent from context.
func GetUserAgentFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyUserAgent)
}

// GetRequestIDFromContext extracts the request ID from context.
func GetRequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyRequestID)
}

// GetFileNameFromContext extracts the upload name from context.
func GetFileNameFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyFileName)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
