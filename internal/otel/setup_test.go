package otel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup("veil", "dev", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_Enabled(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		version     string
	}{
		{"basic setup", "test-service", "1.0.0"},
		{"dev version", "veil", "dev"},
		{"empty version", "veil", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(tt.serviceName, tt.version, true)
			require.NoError(t, err)
			require.NotNil(t, shutdown, "shutdown function must not be nil")

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			assert.NoError(t, shutdown(ctx))
		})
	}
}

func TestTracer_ProducesSpans(t *testing.T) {
	shutdown, err := Setup("test-service", "0.0.1", true)
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	tr := Tracer("github.com/veilhq/veil/internal/otel")
	_, span := tr.Start(context.Background(), "test.span")
	require.NotNil(t, span)
	span.End()
}

func TestTraceContextFrom(t *testing.T) {
	// No span in context: both IDs empty.
	traceID, spanID := TraceContextFrom(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)

	// A recording span yields valid IDs.
	shutdown, err := Setup("test-service", "0.0.1", true)
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := Tracer("test").Start(context.Background(), "op")
	defer span.End()
	traceID, spanID = TraceContextFrom(ctx)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
}
