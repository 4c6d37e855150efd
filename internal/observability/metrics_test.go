package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitMetrics_DisabledRecordsToExtraReaders(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp, err := InitMetrics(context.Background(), DefaultMetricsConfig(), reader)
	require.NoError(t, err)
	require.NotNil(t, mp)

	counter, err := mp.Meter("test").Int64Counter(MetricTurns)
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	assert.NoError(t, ShutdownMetrics(context.Background(), mp))
}

func TestInitMetrics_RejectsMissingEndpoint(t *testing.T) {
	cfg := DefaultMetricsConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	_, err := InitMetrics(context.Background(), cfg)
	require.Error(t, err)
}

func TestMetricsConfig_Validate(t *testing.T) {
	cfg := DefaultMetricsConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	assert.NoError(t, cfg.Validate())

	cfg.Endpoint = ""
	assert.Error(t, cfg.Validate())

	cfg.Provider = "noop"
	assert.NoError(t, cfg.Validate())
}

func TestShutdownMetrics_Nil(t *testing.T) {
	assert.NoError(t, ShutdownMetrics(context.Background(), nil))
}
