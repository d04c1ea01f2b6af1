package tracing

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestParseOTLPEndpoint(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"collector:4318", "collector:4318"},
		{"http://collector", "collector:4318"},
		{"https://otel.example.com:4319/v1/traces", "otel.example.com:4319"},
	}
	for _, tt := range tests {
		got, err := parseOTLPEndpoint(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), "test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestRequestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(previous)

	req := httptest.NewRequest("POST", "/api/bookings/123/cancel", nil)
	req, span := StartRequest(req, "/api/bookings/{id}/cancel")
	assert.True(t, span.SpanContext().IsValid())
	EndRequest(span, 500)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /api/bookings/{id}/cancel", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotNil(t, req.Context())
}
