// Package requestctx carries the validated request identity through the
// request context, replacing module-level session globals.
package requestctx

import "context"

type contextKey struct{ name string }

var (
	userIDKey     = contextKey{"user_id"}
	tokenKey      = contextKey{"token"}
	flagsKey      = contextKey{"permission_flags"}
	sourceAddrKey = contextKey{"source_addr"}
)

// WithIdentity returns a context with the validated user id, session token,
// and permission flags set. Module handlers read these via the Get helpers.
func WithIdentity(ctx context.Context, userID int64, token string, flags int64) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, tokenKey, token)
	ctx = context.WithValue(ctx, flagsKey, flags)
	return ctx
}

// WithSourceAddr returns a context with the client source address set.
func WithSourceAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, sourceAddrKey, addr)
}

// GetUserID returns the user id from context and true if set; otherwise 0, false.
func GetUserID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(userIDKey).(int64)
	return v, ok
}

// GetToken returns the session token from context and true if set; otherwise "", false.
func GetToken(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenKey).(string)
	return v, ok
}

// GetFlags returns the permission flags from context and true if set; otherwise 0, false.
func GetFlags(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(flagsKey).(int64)
	return v, ok
}

// GetSourceAddr returns the client source address from context and true if set; otherwise "", false.
func GetSourceAddr(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sourceAddrKey).(string)
	return v, ok
}
