package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	UseTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() {
		_, err := Init(context.Background(), Config{})
		require.NoError(t, err)
	})
	return recorder
}

func TestDisabledInitInstallsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, IsEnabled())
	assert.NoError(t, shutdown(context.Background()))

	_, span := StartSpan(context.Background(), SpanAwake)
	assert.False(t, span.SpanContext().IsValid())
	EndSpan(span, nil)
}

func TestSpansAreRecorded(t *testing.T) {
	recorder := useRecorder(t)
	require.True(t, IsEnabled())

	ctx, parent := StartSpan(context.Background(), SpanAwake, attribute.Int(AttrServiceCount, 2))
	_, child := StartSpan(ctx, SpanInitialize)
	EndSpan(child, errors.New("boom"))
	EndSpan(parent, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, SpanInitialize, ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())

	assert.Equal(t, SpanAwake, ended[1].Name())
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
	assert.Contains(t, ended[1].Attributes(), attribute.Int(AttrServiceCount, 2))
}

func TestStartSpanAcceptsNilContext(t *testing.T) {
	useRecorder(t)
	//nolint:staticcheck // nil context is tolerated
	ctx, span := StartSpan(nil, SpanTell)
	require.NotNil(t, ctx)
	EndSpan(span, nil)
}
