package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// HealthState is the health of a single dependency.
type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateDegraded  HealthState = "degraded"
	HealthStateUnhealthy HealthState = "unhealthy"
)

func (s HealthState) String() string {
	return string(s)
}

// IsValid checks if the HealthState is a known value.
func (s HealthState) IsValid() bool {
	switch s {
	case HealthStateHealthy, HealthStateDegraded, HealthStateUnhealthy:
		return true
	default:
		return false
	}
}

// UnmarshalJSON rejects unknown states.
func (s *HealthState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	state := HealthState(str)
	if !state.IsValid() {
		return fmt.Errorf("invalid health state: %s", str)
	}
	*s = state
	return nil
}

// HealthStatus is a point-in-time health report.
type HealthStatus struct {
	State     HealthState `json:"state"`
	Message   string      `json:"message,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// NewHealthStatus stamps the status with the current time.
func NewHealthStatus(state HealthState, message string) HealthStatus {
	return HealthStatus{State: state, Message: message, CheckedAt: time.Now()}
}

// Healthy returns a healthy status with message.
func Healthy(message string) HealthStatus {
	return NewHealthStatus(HealthStateHealthy, message)
}

// Degraded returns a degraded status with message.
func Degraded(message string) HealthStatus {
	return NewHealthStatus(HealthStateDegraded, message)
}

// Unhealthy returns an unhealthy status with message.
func Unhealthy(message string) HealthStatus {
	return NewHealthStatus(HealthStateUnhealthy, message)
}

// IsHealthy reports whether the state is healthy.
func (h HealthStatus) IsHealthy() bool {
	return h.State == HealthStateHealthy
}

// Aggregate folds named component statuses into one overall status.
// Any unhealthy component makes the whole unhealthy; any degraded one degrades it.
func Aggregate(components map[string]HealthStatus) HealthStatus {
	state := HealthStateHealthy
	for name, st := range components {
		switch st.State {
		case HealthStateUnhealthy:
			return Unhealthy(name + ": " + st.Message)
		case HealthStateDegraded:
			state = HealthStateDegraded
		}
	}
	return NewHealthStatus(state, "")
}
