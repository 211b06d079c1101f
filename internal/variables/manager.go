package variables

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/hidden-shades/internal/store"
)

// Info summarises a manager's declarations.
type Info struct {
	Total int      `json:"total"`
	IDs   []string `json:"ids"`
}

// Manager owns the variables of one owner and persists each of them, one
// key per variable, every time it changes.
type Manager struct {
	store store.Store

	mu          sync.RWMutex
	vars        map[string]Variable
	initialized bool
}

// NewManager persists into s.
func NewManager(s store.Store) *Manager {
	return &Manager{store: s, vars: make(map[string]Variable)}
}

// Declare registers v and subscribes the manager to its changes. Names
// must be unique within the manager.
func (m *Manager) Declare(v Variable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vars[v.Name()]; ok {
		return fmt.Errorf("variable %q already declared", v.Name())
	}
	if m.initialized {
		log.Warn().Str("variable", v.Name()).Msg("declared after initialize")
	}
	m.vars[v.Name()] = v
	v.AddResponder(m)
	return nil
}

// Initialize loads every stored value, keeping the default when nothing
// usable is stored, then persists and notifies each variable once.
func (m *Manager) Initialize() {
	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()

	for _, name := range m.Names() {
		v, _ := m.Lookup(name)
		raw, err := m.store.Read(name)
		switch {
		case errors.Is(err, store.ErrNotExist):
		case err != nil:
			log.Warn().Err(err).Str("variable", name).Msg("read stored value")
		default:
			if err := v.restore(string(raw)); err != nil {
				log.Warn().Err(err).Str("variable", name).Msg("discarding stored value")
			}
		}
		v.Notify()
	}
}

// Handle persists v. It is invoked for every change of a declared variable.
func (m *Manager) Handle(v Variable) {
	if err := m.store.Write(v.Name(), []byte(v.Encoded())); err != nil {
		log.Error().Err(err).Str("variable", v.Name()).Msg("persist variable")
	}
}

// Lookup returns the named variable or ErrUnknown.
func (m *Manager) Lookup(name string) (Variable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return v, nil
}

// Set assigns a serialized value to the named variable.
func (m *Manager) Set(name, encoded string) (Variable, error) {
	v, err := m.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := v.SetEncoded(encoded); err != nil {
		return nil, err
	}
	return v, nil
}

// SetAll applies serialized values, stopping at the first failure.
func (m *Manager) SetAll(values map[string]string) error {
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, err := m.Set(n, values[n]); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the declared names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.vars))
	for n := range m.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Variables returns a copy of the name to variable map.
func (m *Manager) Variables() map[string]Variable {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Variable, len(m.vars))
	for k, v := range m.vars {
		out[k] = v
	}
	return out
}

// Dicts describes every variable keyed by name.
func (m *Manager) Dicts() map[string]Dict {
	vars := m.Variables()
	out := make(map[string]Dict, len(vars))
	for k, v := range vars {
		out[k] = v.Dict()
	}
	return out
}

func (m *Manager) Info() Info {
	ids := m.Names()
	return Info{Total: len(ids), IDs: ids}
}
