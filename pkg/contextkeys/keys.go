// Package contextkeys owns the request-scoped values that cross package
// boundaries. Keys are unexported; use the accessors.
//
//	ctx = contextkeys.WithAuth(ctx, authCtx)
//	authCtx, _ := contextkeys.Auth(ctx).(*auth.AuthContext)
package contextkeys

import "context"

type key int

const (
	authKey key = iota
	requestIDKey
	userIDKey
	merchantIDKey
	loggerKey
)

// WithAuth stores the caller's *auth.AuthContext
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, authKey, authCtx)
}

// Auth returns the value stored by WithAuth, or nil
func Auth(ctx context.Context) interface{} {
	return ctx.Value(authKey)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserID(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

// WithMerchantID records the merchant account acting on the request
func WithMerchantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, merchantIDKey, id)
}

func MerchantID(ctx context.Context) string {
	return stringValue(ctx, merchantIDKey)
}

// WithLogger stores a request-scoped *observability.Logger
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func Logger(ctx context.Context) interface{} {
	return ctx.Value(loggerKey)
}

func stringValue(ctx context.Context, k key) string {
	s, _ := ctx.Value(k).(string)
	return s
}
