package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_DisabledIsNoop(t *testing.T) {
	tp, err := InitTracing(context.Background(), DefaultTracingConfig())
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.NoError(t, ShutdownTracing(context.Background(), tp))
}

func TestInitTracing_RejectsMissingEndpoint(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	_, err := InitTracing(context.Background(), cfg)
	require.Error(t, err)
}

func TestTracingConfig_Validate(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	cfg.SampleRate = 1.5
	assert.Error(t, cfg.Validate())
}

func TestShutdownTracing_Nil(t *testing.T) {
	assert.NoError(t, ShutdownTracing(context.Background(), nil))
}
