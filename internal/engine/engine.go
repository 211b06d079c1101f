// Package engine runs the per-frame render loop: every active layer of the
// active stack is run and composited through two ping-pong accumulators,
// the result is corrected and pushed to the outputs, then the loop waits
// for the next frame slot.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/stack"
)

// LevelSource provides the global correction for each frame.
type LevelSource interface {
	Levels() render.Levels
}

// Config for an Engine.
type Config struct {
	Dim        render.Dimensions
	FPS        int
	Power      render.Power
	StatsEvery time.Duration
}

// Stats is a snapshot of the render loop.
type Stats struct {
	FPS      float64 `json:"fps"`
	Frames   uint64  `json:"frames"`
	Faults   uint64  `json:"faults"`
	Layers   int     `json:"layers"`
	Stack    string  `json:"stack"`
	RenderMS float64 `json:"render_ms"`
	PostMS   float64 `json:"post_ms"`
}

type Engine struct {
	// mu is the run lock: held for a whole frame and by every control
	// operation, so neither observes the other half done.
	mu sync.Mutex

	stacks *stack.Manager
	levels LevelSource
	cfg    Config

	accum [2]*render.Canvas
	out   *render.Canvas
	rgb   []byte
	post  render.PostPipeline

	hookMu  sync.RWMutex
	outputs []render.Output
	onFrame []func(*render.Canvas)
	onFault []func(string, *layer.FaultError)

	history *FramerateHistory
	statsMu sync.Mutex
	stats   Stats
	lastAt  time.Time
}

// New allocates the accumulators and output frame.
func New(cfg Config, stacks *stack.Manager, levels LevelSource) (*Engine, error) {
	if stacks == nil {
		return nil, errors.New("engine: nil stack manager")
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.StatsEvery <= 0 {
		cfg.StatsEvery = 5 * time.Second
	}
	e := &Engine{
		stacks:  stacks,
		levels:  levels,
		cfg:     cfg,
		post:    render.DefaultPost(),
		history: NewFramerateHistory(10),
	}
	for i := range e.accum {
		c, err := render.NewCanvas(cfg.Dim)
		if err != nil {
			return nil, err
		}
		e.accum[i] = c
	}
	out, err := render.NewCanvas(cfg.Dim)
	if err != nil {
		return nil, err
	}
	e.out = out
	return e, nil
}

func (e *Engine) SetPost(p render.PostPipeline) {
	e.mu.Lock()
	e.post = p
	e.mu.Unlock()
}

// AddOutput registers a frame sink.
func (e *Engine) AddOutput(o render.Output) {
	e.hookMu.Lock()
	e.outputs = append(e.outputs, o)
	e.hookMu.Unlock()
}

// OnFrame registers fn to see every finished frame. fn runs under the run
// lock and must not retain the canvas.
func (e *Engine) OnFrame(fn func(*render.Canvas)) {
	e.hookMu.Lock()
	e.onFrame = append(e.onFrame, fn)
	e.hookMu.Unlock()
}

// OnFault registers fn for layer failures. stack names the stack that was
// rendering.
func (e *Engine) OnFault(fn func(stack string, f *layer.FaultError)) {
	e.hookMu.Lock()
	e.onFault = append(e.onFault, fn)
	e.hookMu.Unlock()
}

// Do runs fn while holding the run lock.
func (e *Engine) Do(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// Dim is the output size.
func (e *Engine) Dim() render.Dimensions { return e.cfg.Dim }

// RenderOnce produces and emits one frame.
func (e *Engine) RenderOnce() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := time.Now()

	st := e.stacks.Active()
	e.accum[0].Clear()
	e.accum[1].Clear()
	cur := 0
	layers := 0
	faults := uint64(0)
	for _, l := range st.Layers() {
		if !l.Active() {
			continue
		}
		layers++
		canvas := l.Canvas()
		canvas.Clear()
		if err := l.Run(); err != nil {
			faults++
			canvas.Clear()
			e.fault(st.ID(), l, err)
		}
		next := 1 - cur
		if err := render.Compose(e.accum[next], canvas, e.accum[cur], l.Mode()); err != nil {
			return err
		}
		cur = next
	}

	postStart := time.Now()
	copy(e.out.Pix, e.accum[cur].Pix)
	levels := render.Levels{Brightness: 1, Gamma: 1}
	if e.levels != nil {
		levels = e.levels.Levels()
	}
	e.post.Apply(e.out.Pix, levels, e.cfg.Power)
	postMS := float64(time.Since(postStart).Microseconds()) / 1000.0

	e.rgb = e.out.RGB(e.rgb)
	e.hookMu.RLock()
	for _, o := range e.outputs {
		o.Push(e.rgb)
	}
	for _, fn := range e.onFrame {
		fn(e.out)
	}
	e.hookMu.RUnlock()

	e.statsMu.Lock()
	if !e.lastAt.IsZero() {
		e.history.RecordPeriodMS(float64(start.Sub(e.lastAt).Microseconds()) / 1000.0)
	}
	e.lastAt = start
	e.stats.Frames++
	e.stats.Faults += faults
	e.stats.Layers = layers
	e.stats.Stack = st.ID()
	e.stats.PostMS = postMS
	e.stats.RenderMS = float64(time.Since(start).Microseconds()) / 1000.0
	e.statsMu.Unlock()
	return nil
}

func (e *Engine) fault(stackID string, l *layer.Layer, err error) {
	var fe *layer.FaultError
	if !errors.As(err, &fe) {
		fe = &layer.FaultError{Layer: l.ID(), Err: err}
	}
	ev := log.Error().Err(fe.Err).Str("stack", stackID).Str("layer", fe.Layer).Str("shard", fe.Shard)
	if len(fe.Stack) > 0 {
		ev = ev.Str("trace", string(fe.Stack))
	}
	ev.Msg("layer fault")

	e.hookMu.RLock()
	defer e.hookMu.RUnlock()
	for _, fn := range e.onFault {
		fn(stackID, fe)
	}
}

// Stats returns counters and the moving average frame rate.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	s := e.stats
	s.FPS = e.history.Average()
	return s
}

// Run renders until ctx is cancelled. A ticker marks frame slots at the
// target rate; a slot that arrives while a frame is still rendering is
// kept, further ones are dropped.
func (e *Engine) Run(ctx context.Context) error {
	slot := make(chan struct{}, 1)
	go e.rateLimiter(ctx, slot)
	go e.reportStats(ctx)

	for {
		if err := e.RenderOnce(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-slot:
		}
	}
}

func (e *Engine) rateLimiter(ctx context.Context, slot chan<- struct{}) {
	t := time.NewTicker(time.Second / time.Duration(e.cfg.FPS))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			select {
			case slot <- struct{}{}:
			default:
			}
		}
	}
}

func (e *Engine) reportStats(ctx context.Context) {
	t := time.NewTicker(e.cfg.StatsEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := e.Stats()
			log.Info().Float64("fps", s.FPS).Int("layers", s.Layers).Str("stack", s.Stack).Uint64("faults", s.Faults).Msg("render")
		}
	}
}
