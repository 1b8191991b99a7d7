package telemetry

import (
	"testing"

	"github.com/parlorhq/go-hookrelay/pkg/config"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
)

func TestInit_Success(t *testing.T) {
	// Mock observability configuration
	cfg := config.Observability{
		ServiceName: "test-service",
		TracingURL:  "localhost:4318", // Mock OTLP endpoint
	}

	// Call Init and ensure no errors occur
	shutdown, err := Init(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, shutdown)

	// Ensure the global tracer provider is set
	tp := otel.GetTracerProvider()
	assert.NotNil(t, tp)

	// Shutdown telemetry and ensure no errors occur
	shutdown()
}

func TestInit_NoTracingURLDisablesTracing(t *testing.T) {
	cfg := config.Observability{
		ServiceName: "test-service",
		TracingURL:  "",
	}

	// Tracing is optional; Init succeeds with a no-op shutdown
	shutdown, err := Init(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, shutdown)
	shutdown()
}

func TestInit_EmptyServiceName(t *testing.T) {
	// Mock observability configuration with an empty ServiceName
	cfg := config.Observability{
		ServiceName: "",
		TracingURL:  "localhost:4318",
	}

	// Call Init and ensure it returns an error
	shutdown, err := Init(cfg)
	assert.Error(t, err)
	assert.Nil(t, shutdown)
}
