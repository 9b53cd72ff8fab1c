package assistance

// Registry is the explicit catalogue of assistance processes. Types are
// registered once at startup, in a deterministic order that also governs
// event evaluation.
type Registry struct {
	processes map[string]Process
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{
		processes: make(map[string]Process),
	}
}

// Register adds a process. A duplicate type key is a configuration error
// and panics.
func (r *Registry) Register(p Process) *Registry {
	key := p.Key()
	if _, exists := r.processes[key]; exists {
		panic(DuplicateProcessTypeError{TypeKey: key})
	}
	r.processes[key] = p
	r.order = append(r.order, key)
	return r
}

func (r *Registry) Get(key string) (Process, bool) {
	p, ok := r.processes[key]
	return p, ok
}

// Keys returns all type keys in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Describe renders all registered processes in registration order.
func (r *Registry) Describe() []TypeDescription {
	descriptions := make([]TypeDescription, 0, len(r.order))
	for _, key := range r.order {
		descriptions = append(descriptions, Describe(r.processes[key]))
	}
	return descriptions
}
