package api

import (
	"context"

	"github.com/npezzotti/vibehub/internal/session"
)

type contextKey string

const (
	callerKey     contextKey = "caller"
	credentialKey contextKey = "credential"
)

func WithCaller(ctx context.Context, caller session.Caller, credential string) context.Context {
	ctx = context.WithValue(ctx, callerKey, caller)
	return context.WithValue(ctx, credentialKey, credential)
}

// CallerFrom returns the caller resolved by the auth middleware.
func CallerFrom(ctx context.Context) (session.Caller, bool) {
	caller, ok := ctx.Value(callerKey).(session.Caller)
	return caller, ok
}

func credentialFrom(ctx context.Context) string {
	credential, _ := ctx.Value(credentialKey).(string)
	return credential
}
