package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthState_UnmarshalJSON(t *testing.T) {
	var s HealthState
	require.NoError(t, json.Unmarshal([]byte(`"degraded"`), &s))
	assert.Equal(t, HealthStateDegraded, s)

	assert.Error(t, json.Unmarshal([]byte(`"sleepy"`), &s))
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]HealthStatus
		want       HealthState
	}{
		{"empty", map[string]HealthStatus{}, HealthStateHealthy},
		{"all healthy", map[string]HealthStatus{"graph": Healthy(""), "llm": Healthy("")}, HealthStateHealthy},
		{"one degraded", map[string]HealthStatus{"graph": Healthy(""), "cache": Degraded("slow")}, HealthStateDegraded},
		{"one unhealthy", map[string]HealthStatus{"graph": Unhealthy("down"), "cache": Degraded("slow")}, HealthStateUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.components).State)
		})
	}
}
