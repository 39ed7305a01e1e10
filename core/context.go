package core

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDKey is the context key for the request ID (uuid.UUID). It is echoed in the X-Request-ID header.
	RequestIDKey contextKey = "RequestID"
	// RequestTimeKey is the context key for the time the request was received (time.Time)
	RequestTimeKey contextKey = "RequestTime"
	// ActorKey is the context key for the email of the authenticated admin (string)
	ActorKey contextKey = "Actor"
)

// ContextWithRequestID returns a new request with a request ID in the context
func ContextWithRequestID(req *http.Request, requestID uuid.UUID) *http.Request {
	ctx := context.WithValue(req.Context(), RequestIDKey, requestID)
	return req.WithContext(ctx)
}

// RequestIDFromContext returns the request ID from the context if it exists
func RequestIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(RequestIDKey).(uuid.UUID)
	return id, ok
}

// ContextWithRequestTime returns a new request with the request time in the context
func ContextWithRequestTime(req *http.Request, requestTime time.Time) *http.Request {
	ctx := context.WithValue(req.Context(), RequestTimeKey, requestTime)
	return req.WithContext(ctx)
}

// RequestTimeFromContext returns the request time from the context if it exists
func RequestTimeFromContext(ctx context.Context) (time.Time, bool) {
	timestamp, ok := ctx.Value(RequestTimeKey).(time.Time)
	return timestamp, ok
}

// ContextWithActor returns a new request with the acting admin in the context
func ContextWithActor(req *http.Request, email string) *http.Request {
	ctx := context.WithValue(req.Context(), ActorKey, email)
	return req.WithContext(ctx)
}

// ActorFromContext returns the acting admin from the context if it exists
func ActorFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(ActorKey).(string)
	return email, ok && email != ""
}

// AuditOptions returns the log options describing who caused an entry, based on the context.
func AuditOptions(ctx context.Context) []LogOption {
	var options []LogOption
	if id, ok := RequestIDFromContext(ctx); ok {
		options = append(options, LogWithRequestID(id))
	}
	if actor, ok := ActorFromContext(ctx); ok {
		options = append(options, LogWithActor(actor))
	}
	return options
}
