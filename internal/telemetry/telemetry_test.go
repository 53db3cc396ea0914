package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farukkamcici/ibb-transport-sub000/internal/config"
)

func TestInitDisabledReturnsNoopShutdown(t *testing.T) {
	cfg := config.Default().Telemetry

	shutdownTracing, err := InitTracing(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdownTracing)
	shutdownTracing()

	shutdownMetrics, err := InitMetrics(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdownMetrics)
	shutdownMetrics()

	shutdownProfiling, err := InitProfiling(cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdownProfiling)
	shutdownProfiling()
}

func TestCounterWithoutProvider(t *testing.T) {
	counter := Counter("test", "cache.hits", "hits")
	assert.NotNil(t, counter)
	// Recording on the global noop provider must not panic
	counter.Add(context.Background(), 1)
}
