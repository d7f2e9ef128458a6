package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pushbulletnet/pushbullet/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "pbctl",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})
	require.NoError(t, err)

	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestInit_EnabledDoesNotDialEagerly(t *testing.T) {
	ctx := context.Background()

	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})

	// gRPC exporters connect lazily, so an unreachable collector is not an error.
	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "pbctl",
		Environment:  "test",
		OTLPEndpoint: "127.0.0.1:1",
		Insecure:     true,
		SampleRatio:  0.25,
		Enabled:      true,
	})
	require.NoError(t, err)
	require.NotNil(t, provider.TracerProvider)
	require.NotNil(t, provider.MeterProvider)

	// Shutdown may report the failed flush; it must still stop both providers.
	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	_ = provider.Shutdown(shutdownCtx)
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_Shutdown_SDKProviders(t *testing.T) {
	provider := &telemetry.Provider{
		TracerProvider: sdktrace.NewTracerProvider(),
		MeterProvider:  sdkmetric.NewMeterProvider(),
	}
	ctx := context.Background()

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestTracerAndMeter_UseGlobalProviders(t *testing.T) {
	assert.NotNil(t, telemetry.Tracer("pbctl"))
	assert.NotNil(t, telemetry.Meter("pbctl"))
}
