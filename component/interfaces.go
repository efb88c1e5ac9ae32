package component

import "context"

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is one component's answer to a health check.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Healthy reports a passing check for name.
func Healthy(name string) Health {
	return Health{Name: name, Status: StatusHealthy}
}

// Unhealthy reports a failing check for name with a reason.
func Unhealthy(name, reason string) Health {
	return Health{Name: name, Status: StatusUnhealthy, Message: reason}
}

// OK reports whether the status is healthy.
func (h Health) OK() bool { return h.Status == StatusHealthy }

// Component is anything the Registry starts, stops and checks. Name must
// be unique within a registry.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is what the registry logs when a component starts.
type Description struct {
	Name    string
	Type    string // e.g. "http-client"
	Details string // e.g. "backend=nethttp read_timeout=5s"
}

// Describable components contribute a Description to startup logs.
type Describable interface {
	Describe() Description
}
