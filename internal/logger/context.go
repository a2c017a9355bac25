package logger

import (
	"context"

	"go.uber.org/zap"
)

// ctxKey is unexported so only this package can attach loggers to a context.
type ctxKey struct{}

// WithContext returns a child context carrying l. Handlers downstream recover
// it with FromContext to log with request-scoped fields.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached by WithContext. Contexts without
// one get a no-op logger, never nil.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
