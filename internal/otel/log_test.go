package otel

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogTraceFields_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Info().Func(LogTraceFields(context.Background())).Msg("hello")

	assert.NotContains(t, buf.String(), "trace_id")
	assert.NotContains(t, buf.String(), "span_id")
}

func TestLogTraceFields_WithSpan(t *testing.T) {
	shutdown, err := Setup("test-service", "dev", true)
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Info().Func(LogTraceFields(ctx)).Msg("hello")

	assert.Contains(t, buf.String(), "trace_id")
	assert.Contains(t, buf.String(), "span_id")
}
