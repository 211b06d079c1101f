// Package layer implements one compositable unit of the output: a canvas,
// the user variables its shard declares, the standard variables every
// layer carries and a persisted info record.
package layer

import (
	"fmt"
	"math"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/hidden-shades/internal/cache"
	"github.com/coreman2200/hidden-shades/internal/palette"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/store"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// PaletteSource supplies the global palette.
type PaletteSource interface {
	Palette() palette.Sequence
}

// DefaultPalette is the local palette of a new layer.
var DefaultPalette = palette.NewSequence(palette.ContinuousCircular, 0x000000, 0xFFFFFF)

// Info is the layer's bookkeeping record. Index is assigned by the owning
// stack and is nil until then.
type Info struct {
	ID              string  `json:"id"`
	ShardUUID       *string `json:"shard_uuid"`
	Index           *int    `json:"index"`
	Active          bool    `json:"active"`
	UseLocalPalette bool    `json:"use_local_palette"`
}

// Options configure a new layer.
type Options struct {
	ID       string
	Store    store.Store
	Dim      render.Dimensions
	Globals  PaletteSource
	InitInfo map[string]any
}

// Layer is driven once per frame by the scheduler through Run.
type Layer struct {
	id      string
	store   store.Store
	canvas  *render.Canvas
	globals PaletteSource

	vars       *variables.Manager
	private    *variables.Manager
	mode       *variables.Choice
	palette    *variables.ColorSequence
	brightness *variables.Floating

	info      *cache.Cache
	active    atomic.Bool
	localPal  atomic.Bool
	modeValue atomic.Uint32

	mu      sync.Mutex
	shard   Shard
	shardID string
	faults  uint64
}

// New restores or creates the layer stored at opts.Store.
func New(opts Options) (*Layer, error) {
	if err := checkInfo(opts.InitInfo); err != nil {
		return nil, fmt.Errorf("layer %s info: %w", opts.ID, err)
	}
	canvas, err := render.NewCanvas(opts.Dim)
	if err != nil {
		return nil, err
	}
	l := &Layer{
		id:      opts.ID,
		store:   opts.Store,
		canvas:  canvas,
		globals: opts.Globals,
		vars:    variables.NewManager(store.Sub(opts.Store, "vars")),
		private: variables.NewManager(store.Sub(opts.Store, "private_vars")),
	}
	l.modeValue.Store(uint32(render.DefaultMode))

	if l.mode, err = variables.NewOption("composition_mode", render.DefaultMode.String(), render.ModeNames(),
		variables.WithResponders(variables.ResponderFunc(l.handleMode))); err != nil {
		return nil, err
	}
	if l.palette, err = variables.NewColorSequence("palette", DefaultPalette); err != nil {
		return nil, err
	}
	if l.brightness, err = variables.NewFloating("brightness", 1.0, variables.WithRange(0, 1)); err != nil {
		return nil, err
	}
	for _, v := range []variables.Variable{l.mode, l.palette, l.brightness} {
		if err := l.private.Declare(v); err != nil {
			return nil, err
		}
	}
	l.private.Initialize()

	initial := map[string]any{
		"shard_uuid":        nil,
		"index":             nil,
		"active":            true,
		"use_local_palette": false,
	}
	for k, v := range opts.InitInfo {
		initial[k] = v
	}
	if l.info, err = cache.New(opts.Store, "info", initial, l.handleInfo); err != nil {
		return nil, fmt.Errorf("layer %s info: %w", opts.ID, err)
	}
	return l, nil
}

func (l *Layer) handleMode(v variables.Variable) {
	m, err := render.ParseMode(v.Encoded())
	if err != nil {
		return
	}
	l.modeValue.Store(uint32(m))
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

func (l *Layer) handleInfo(key string, value any) (any, bool) {
	l.canvas.Clear()
	switch key {
	case "active":
		b := truthy(value)
		l.active.Store(b)
		return b, true
	case "use_local_palette":
		b := truthy(value)
		l.localPal.Store(b)
		return b, true
	case "index":
		switch t := value.(type) {
		case float64:
			if t >= 0 && t == math.Trunc(t) {
				return int(t), true
			}
		case int:
			if t >= 0 {
				return t, true
			}
		}
		return nil, true
	case "shard_uuid":
		if _, ok := value.(string); !ok {
			return nil, true
		}
	}
	return nil, false
}

// Bind looks up the shard named by the info record and runs its factory,
// then initializes the variables the factory declared.
func (l *Layer) Bind(reg *Registry) error {
	info := l.Info()
	if info.ShardUUID == nil {
		return fmt.Errorf("layer %s: %w: no shard_uuid", l.id, ErrUnknownShard)
	}
	factory, err := reg.Get(*info.ShardUUID)
	if err != nil {
		return fmt.Errorf("layer %s: %w", l.id, err)
	}
	shard, err := factory(l)
	if err != nil {
		return fmt.Errorf("layer %s: bind %s: %w", l.id, *info.ShardUUID, err)
	}
	l.vars.Initialize()
	l.mu.Lock()
	l.shard = shard
	l.shardID = *info.ShardUUID
	l.mu.Unlock()
	return nil
}

// FaultError is a failure raised by a shard while drawing a frame.
type FaultError struct {
	Layer string
	Shard string
	Err   error
	Stack []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("layer %s (shard %s): %v", e.Layer, e.Shard, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }

// Run advances the bound shard by one frame and applies the layer
// brightness. It does nothing for an inactive or unbound layer. Shard
// errors and panics are returned as a *FaultError.
func (l *Layer) Run() (err error) {
	if !l.active.Load() {
		return nil
	}
	l.mu.Lock()
	shard, shardID := l.shard, l.shardID
	l.mu.Unlock()
	if shard == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Layer: l.id, Shard: shardID, Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
		if err != nil {
			l.mu.Lock()
			l.faults++
			l.mu.Unlock()
		}
	}()
	if ferr := shard.Frame(l); ferr != nil {
		return &FaultError{Layer: l.id, Shard: shardID, Err: ferr}
	}
	l.canvas.ScaleRGB(float32(l.brightness.Get()))
	return nil
}

// Faults counts failed frames since construction.
func (l *Layer) Faults() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.faults
}

func (l *Layer) ID() string              { return l.id }
func (l *Layer) Canvas() *render.Canvas  { return l.canvas }
func (l *Layer) Active() bool            { return l.active.Load() }
func (l *Layer) Mode() render.Mode       { return render.Mode(l.modeValue.Load()) }
func (l *Layer) Brightness() float64     { return l.brightness.Get() }
func (l *Layer) Dim() render.Dimensions  { return l.canvas.Dim }

// Variables are the user parameters declared by the shard.
func (l *Layer) Variables() *variables.Manager { return l.vars }

// StandardVariables holds composition_mode, palette and brightness.
func (l *Layer) StandardVariables() *variables.Manager { return l.private }

// Palette is the global palette unless use_local_palette is set.
func (l *Layer) Palette() palette.Sequence {
	if l.localPal.Load() || l.globals == nil {
		return l.palette.Get()
	}
	return l.globals.Palette()
}

// Info returns the current bookkeeping record.
func (l *Layer) Info() Info {
	var info Info
	if err := l.info.Decode(&info); err != nil {
		log.Warn().Err(err).Str("layer", l.id).Msg("decode layer info")
	}
	info.ID = l.id
	return info
}

// Index is the stack position, or -1 before the stack assigned one.
func (l *Layer) Index() int {
	if i := l.Info().Index; i != nil {
		return *i
	}
	return -1
}

func (l *Layer) SetIndex(i int) error { return l.info.Set("index", i) }

func (l *Layer) SetActive(active bool) error { return l.info.Set("active", active) }

func (l *Layer) UseLocalPalette(local bool) error { return l.info.Set("use_local_palette", local) }

// MergeInfo applies a partial info record. The index is owned by the
// stack and is ignored here.
func (l *Layer) MergeInfo(m map[string]any) error {
	if err := checkInfo(m); err != nil {
		return fmt.Errorf("layer %s info: %w", l.id, err)
	}
	clean := make(map[string]any, len(m))
	for k, v := range m {
		if k == "index" || k == "id" {
			continue
		}
		clean[k] = v
	}
	return l.info.Merge(clean)
}

// checkInfo accepts only flat records: null, boolean, number or string
// values.
func checkInfo(m map[string]any) error {
	for k, v := range m {
		switch v.(type) {
		case nil, bool, string, float64, float32, int, int64, uint16:
		default:
			return fmt.Errorf("%w: info %q must be a primitive, got %T", variables.ErrValidation, k, v)
		}
	}
	return nil
}

// Destroy removes everything the layer persisted.
func (l *Layer) Destroy() error {
	return l.store.RemoveAll("")
}
