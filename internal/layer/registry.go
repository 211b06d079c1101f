package layer

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownShard is returned when no factory is registered for an id.
var ErrUnknownShard = errors.New("unknown shard")

// Shard draws one frame into its layer's canvas per call. Any state it
// carries between frames lives on the implementing value.
type Shard interface {
	Frame(l *Layer) error
}

// ShardFunc adapts a stateless function to Shard.
type ShardFunc func(l *Layer) error

func (f ShardFunc) Frame(l *Layer) error { return f(l) }

// Factory binds a new shard to l. It declares the shard's variables on
// l.Variables(); Bind initializes them once the factory returns.
type Factory func(l *Layer) (Shard, error)

// Registry maps shard identifiers to factories.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Factory
}

func NewRegistry() *Registry { return &Registry{m: map[string]Factory{}} }

func (r *Registry) Register(id string, f Factory) {
	if f == nil {
		return
	}
	r.mu.Lock()
	r.m[id] = f
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.m[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShard, id)
	}
	return f, nil
}

// List returns the registered ids, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
