package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth tracks the health status of an external provider.
type ProviderHealth struct {
	Name             string          `json:"name"`
	State            gobreaker.State `json:"circuit_state"`
	TotalRequests    uint64          `json:"total_requests"`
	TotalFailures    uint64          `json:"total_failures"`
	ConsecutiveFails uint32          `json:"consecutive_failures"`
	LastSuccess      *time.Time      `json:"last_success,omitempty"`
	LastFailure      *time.Time      `json:"last_failure,omitempty"`
	LastError        string          `json:"last_error,omitempty"`
}

// Healthy reports whether the provider circuit is closed and at least one
// request has succeeded since the last failure streak began.
func (h ProviderHealth) Healthy() bool {
	return h.State == gobreaker.StateClosed && h.ConsecutiveFails == 0
}

// Registry tracks the health of registered provider clients. A single
// Registry is shared by all clients in a process and injected where
// health reporting is needed.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	health  map[string]*ProviderHealth
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		health:  make(map[string]*ProviderHealth),
	}
}

// Register adds a client to the registry under the given name. Re-registering
// a name replaces the client but preserves its accumulated health counters.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[name] = client
	if _, ok := r.health[name]; !ok {
		r.health[name] = &ProviderHealth{Name: name}
	}
}

// RecordSuccess records a successful request for the named provider.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.healthLocked(name)
	now := time.Now()
	h.TotalRequests++
	h.ConsecutiveFails = 0
	h.LastSuccess = &now
	h.LastError = ""
}

// RecordFailure records a failed request for the named provider.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.healthLocked(name)
	now := time.Now()
	h.TotalRequests++
	h.TotalFailures++
	h.ConsecutiveFails++
	h.LastFailure = &now
	if err != nil {
		h.LastError = err.Error()
	}
}

// GetHealth returns a snapshot of the named provider's health.
func (r *Registry) GetHealth(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.health[name]
	if !ok {
		return ProviderHealth{}, false
	}

	snapshot := *h
	if client, ok := r.clients[name]; ok {
		snapshot.State = client.CircuitBreakerState()
	}
	return snapshot, true
}

// GetAllHealth returns a snapshot of every registered provider's health.
func (r *Registry) GetAllHealth() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.health))
	for name, h := range r.health {
		snapshot := *h
		if client, ok := r.clients[name]; ok {
			snapshot.State = client.CircuitBreakerState()
		}
		out = append(out, snapshot)
	}
	return out
}

func (r *Registry) healthLocked(name string) *ProviderHealth {
	h, ok := r.health[name]
	if !ok {
		h = &ProviderHealth{Name: name}
		r.health[name] = h
	}
	return h
}
