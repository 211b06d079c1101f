// Package stack keeps ordered, persisted collections of layers and the A/B
// pair the renderer switches between.
package stack

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/store"
)

var (
	ErrInvalidStack = errors.New("invalid stack")
	ErrUnknownLayer = errors.New("unknown layer")
	ErrIndexRange   = errors.New("layer index out of range")
)

const layersDir = "layers"

// Constructor builds a layer persisted under s. init seeds the info record
// of a new layer and is nil when restoring one from storage.
type Constructor func(id string, s store.Store, init map[string]any) (*layer.Layer, error)

// Stack is an ordered set of layers. Indices are renumbered to 0..N-1 after
// every structural change.
type Stack struct {
	id       string
	store    store.Store
	newLayer Constructor

	mu     sync.RWMutex
	order  []*layer.Layer
	byID   map[string]*layer.Layer
	nextID int
}

// New restores every layer found under s/layers.
func New(id string, s store.Store, c Constructor) (*Stack, error) {
	st := &Stack{id: id, store: s, newLayer: c, byID: map[string]*layer.Layer{}}
	names, err := s.List(layersDir)
	if err != nil {
		return nil, fmt.Errorf("stack %s: list layers: %w", id, err)
	}
	for _, name := range names {
		if _, err := strconv.Atoi(name); err != nil {
			continue
		}
		l, err := c(name, st.layerStore(name), nil)
		if err != nil {
			log.Warn().Err(err).Str("stack", id).Str("layer", name).Msg("skipping layer")
			continue
		}
		st.order = append(st.order, l)
		st.byID[name] = l
	}
	sort.SliceStable(st.order, func(i, j int) bool {
		a, b := st.order[i].Index(), st.order[j].Index()
		if a < 0 {
			return false
		}
		return b < 0 || a < b
	})
	st.renumber()
	return st, nil
}

func (s *Stack) layerStore(id string) store.Store {
	return store.Sub(s.store, store.Join(layersDir, id))
}

func (s *Stack) ID() string { return s.id }

func (s *Stack) renumber() {
	for i, l := range s.order {
		if l.Index() == i {
			continue
		}
		if err := l.SetIndex(i); err != nil {
			log.Error().Err(err).Str("stack", s.id).Str("layer", l.ID()).Msg("persist layer index")
		}
	}
}

// NewLayerID probes storage upward for an unused numeric id. Probing never
// goes below an id handed out earlier by this stack.
func (s *Stack) NewLayerID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newLayerIDLocked()
}

func (s *Stack) newLayerIDLocked() (string, error) {
	for id := s.nextID; ; id++ {
		name := strconv.Itoa(id)
		if _, taken := s.byID[name]; taken {
			continue
		}
		ok, err := s.store.Exists(store.Join(layersDir, name))
		if err != nil {
			return "", err
		}
		if !ok {
			s.nextID = id + 1
			return name, nil
		}
	}
}

// Add allocates an id, constructs a layer with the given info and appends
// it to the top of the stack.
func (s *Stack) Add(init map[string]any) (*layer.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.newLayerIDLocked()
	if err != nil {
		return nil, err
	}
	l, err := s.newLayer(id, s.layerStore(id), init)
	if err != nil {
		return nil, err
	}
	s.appendLocked(l)
	return l, nil
}

// AddLayer appends an already constructed layer.
func (s *Stack) AddLayer(l *layer.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(l)
}

func (s *Stack) appendLocked(l *layer.Layer) {
	s.order = append(s.order, l)
	s.byID[l.ID()] = l
	s.renumber()
}

// Layer returns the layer with id.
func (s *Stack) Layer(id string) (*layer.Layer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q in stack %s", ErrUnknownLayer, id, s.id)
	}
	return l, nil
}

// Layers returns the layers in composition order.
func (s *Stack) Layers() []*layer.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*layer.Layer(nil), s.order...)
}

// IDs returns layer ids in composition order.
func (s *Stack) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	for i, l := range s.order {
		ids[i] = l.ID()
	}
	return ids
}

func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Stack) position(id string) (int, error) {
	for i, l := range s.order {
		if l.ID() == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in stack %s", ErrUnknownLayer, id, s.id)
}

// MoveLayerToIndex moves layer id to position dest.
func (s *Stack) MoveLayerToIndex(id string, dest int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, err := s.position(id)
	if err != nil {
		return err
	}
	if dest < 0 || dest >= len(s.order) {
		return fmt.Errorf("%w: %d outside 0..%d", ErrIndexRange, dest, len(s.order)-1)
	}
	l := s.order[from]
	s.order = append(s.order[:from], s.order[from+1:]...)
	s.order = append(s.order[:dest], append([]*layer.Layer{l}, s.order[dest:]...)...)
	s.renumber()
	return nil
}

// RemoveLayerByID drops the layer and destroys its storage.
func (s *Stack) RemoveLayerByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, err := s.position(id)
	if err != nil {
		return err
	}
	l := s.order[at]
	s.order = append(s.order[:at], s.order[at+1:]...)
	delete(s.byID, id)
	s.renumber()
	if err := l.Destroy(); err != nil {
		return fmt.Errorf("remove layer %s storage: %w", id, err)
	}
	return nil
}

// ClearLayers removes every layer and its storage.
func (s *Stack) ClearLayers() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = map[string]*layer.Layer{}
	return s.store.RemoveAll(layersDir)
}
