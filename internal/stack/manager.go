package stack

import (
	"fmt"
	"sync"

	"github.com/coreman2200/hidden-shades/internal/cache"
	"github.com/coreman2200/hidden-shades/internal/store"
)

// Names of the two stacks a Manager owns.
const (
	A = "A"
	B = "B"
)

// Manager owns stacks A and B. The active one is rendered while the other
// can be edited freely; Activate publishes an edit by swapping the two.
type Manager struct {
	stacks map[string]*Stack
	info   *cache.Cache

	mu       sync.RWMutex
	active   *Stack
	inactive *Stack
}

// NewManager restores both stacks under s and the selector in s/info.
func NewManager(s store.Store, c Constructor) (*Manager, error) {
	m := &Manager{stacks: map[string]*Stack{}}
	for _, name := range []string{A, B} {
		st, err := New(name, store.Sub(s, name), c)
		if err != nil {
			return nil, err
		}
		m.stacks[name] = st
	}
	info, err := cache.New(s, "info", map[string]any{
		"active": A,
		"stacks": []string{A, B},
	}, m.handleInfo)
	if err != nil {
		return nil, err
	}
	m.info = info
	return m, nil
}

func (m *Manager) handleInfo(key string, value any) (any, bool) {
	if key != "active" {
		return nil, false
	}
	name, _ := value.(string)
	if name != A && name != B {
		name = A
		m.point(name)
		return name, true
	}
	m.point(name)
	return nil, false
}

func (m *Manager) point(name string) {
	other := B
	if name == B {
		other = A
	}
	m.mu.Lock()
	m.active, m.inactive = m.stacks[name], m.stacks[other]
	m.mu.Unlock()
}

// Activate makes name the rendered stack. Any name but "A" or "B" fails
// and leaves the selection unchanged.
func (m *Manager) Activate(name string) error {
	if name != A && name != B {
		return fmt.Errorf("%w: %q", ErrInvalidStack, name)
	}
	return m.info.Set("active", name)
}

// Switch activates whichever stack is currently inactive.
func (m *Manager) Switch() error {
	if m.ActiveID() == A {
		return m.Activate(B)
	}
	return m.Activate(A)
}

// Get resolves "active" or "inactive".
func (m *Manager) Get(which string) (*Stack, error) {
	switch which {
	case "active":
		return m.Active(), nil
	case "inactive":
		return m.Inactive(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidStack, which)
}

func (m *Manager) Active() *Stack {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

func (m *Manager) Inactive() *Stack {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inactive
}

func (m *Manager) ActiveID() string { return m.Active().ID() }

// Stack returns stack A or B by name.
func (m *Manager) Stack(name string) (*Stack, error) {
	st, ok := m.stacks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStack, name)
	}
	return st, nil
}

// IDs lists the stack names.
func (m *Manager) IDs() []string { return []string{A, B} }
