package documents

import (
	"context"

	"intake-backend/internal/analyses"
)

// WithRequestID shares the analyses request-id slot so both services log the same id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return analyses.WithRequestID(ctx, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	return analyses.RequestIDFromContext(ctx)
}
