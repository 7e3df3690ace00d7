package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	CorrelationIDKey contextKey = "correlation_id"
	SourceKey        contextKey = "source"
	ServiceNameKey   contextKey = "service_name"
	RunIDKey         contextKey = "run_id"
)

// NewRunID returns a fresh identifier for one invocation of the process.
func NewRunID() string {
	return uuid.NewString()
}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

func GetSource(ctx context.Context) string {
	if source, ok := ctx.Value(SourceKey).(string); ok {
		return source
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	if id := GetCorrelationID(ctx); id != "" {
		fields = append(fields, string(CorrelationIDKey), id)
	}

	if source := GetSource(ctx); source != "" {
		fields = append(fields, string(SourceKey), source)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, string(ServiceNameKey), serviceName)
	}

	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, string(RunIDKey), runID)
	}

	return fields
}
