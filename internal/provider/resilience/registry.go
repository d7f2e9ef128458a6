package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Health is a snapshot of a client's circuit breaker and recent outcomes.
type Health struct {
	// Name is the client name.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is the timestamp of the last successful request.
	LastSuccessAt *time.Time

	// LastFailureAt is the timestamp of the last failed request.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string
}

// IsHealthy returns true if the circuit is closed.
func (h *Health) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true if the circuit is half-open.
func (h *Health) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy returns true if the circuit is open.
func (h *Health) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks resilient clients and their health.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*registeredClient
}

type registeredClient struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*registeredClient),
	}
}

// Register adds a client to the registry, replacing any client with the same name.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = &registeredClient{
		client: client,
	}
}

// Unregister removes a client from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, name)
}

// RecordSuccess records a successful request.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.clients[name]; ok {
		now := time.Now()
		p.lastSuccessAt = &now
	}
}

// RecordFailure records a failed request.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.clients[name]; ok {
		now := time.Now()
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// GetHealth returns the health of a client, or nil if it is not registered.
func (r *Registry) GetHealth(name string) *Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[name]
	if !ok {
		return nil
	}
	return c.snapshot(name)
}

// GetAllHealth returns the health of every registered client.
func (r *Registry) GetAllHealth() []*Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*Health, 0, len(r.clients))
	for name, c := range r.clients {
		health = append(health, c.snapshot(name))
	}
	return health
}

func (c *registeredClient) snapshot(name string) *Health {
	return &Health{
		Name:          name,
		CircuitState:  c.client.CircuitBreakerState(),
		Counts:        c.client.CircuitBreakerCounts(),
		LastSuccessAt: c.lastSuccessAt,
		LastFailureAt: c.lastFailureAt,
		LastError:     c.lastError,
	}
}

// Names returns the names of all registered clients.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
