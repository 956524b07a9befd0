package lowering

import "sync"

// Entry is one lowering exposed to the compiler host: an operation name and
// the compile function matched against the host's call sites for it. When
// Lower fails with a fallback kind (IsFallback), the host keeps its default
// lowering for that call site.
type Entry struct {
	Op    Op
	Lower func(sig Signature) (*Compiled, error)
}

// Registry is the host compiler's dispatch surface for accelerated
// lowerings. Entries are installed by an explicit RegisterAll call during
// initialization, never as an import side effect.
type Registry struct {
	mu      sync.RWMutex
	entries map[Op]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Op]Entry)}
}

// Install adds or replaces the entry for an operation.
func (r *Registry) Install(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Op] = e
}

// Lookup returns the entry for an operation.
func (r *Registry) Lookup(op Op) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[op]
	return e, ok
}

// Ops returns the registered operation names.
func (r *Registry) Ops() []Op {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]Op, 0, len(r.entries))
	for op := range r.entries {
		ops = append(ops, op)
	}
	return ops
}

// RegisterAll installs one entry per supported operation, binding the
// engine's dispatch table into the host registry.
func RegisterAll(r *Registry, e *Engine) {
	for _, op := range []Op{Dot, MatMul, Sum, Prod, Argmax, Argmin, Argsort, Cov} {
		op := op
		r.Install(Entry{
			Op: op,
			Lower: func(sig Signature) (*Compiled, error) {
				return e.Lower(op, sig)
			},
		})
	}
}
