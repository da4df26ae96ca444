package breaker

import "sync"

// Registry creates and caches one Breaker per Session name, lazily and
// safely under concurrent access (spec §5: "created lazily
// (double-checked)").
type Registry struct {
	opts Options

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry constructs a Registry that creates breakers with opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts, breakers: map[string]*Breaker{}}
}

// Get returns the Breaker for sessionName, creating it on first use.
func (r *Registry) Get(sessionName string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[sessionName]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[sessionName]; ok {
		return b
	}
	b = New(sessionName, r.opts)
	r.breakers[sessionName] = b
	return b
}

// Close drops every cached breaker. Breakers hold no resources of their own
// (they reference a Session only by name, per spec §3's DAG note), so Close
// simply clears the map.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = map[string]*Breaker{}
}
