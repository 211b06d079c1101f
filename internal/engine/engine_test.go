package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/stack"
	"github.com/coreman2200/hidden-shades/internal/store"
)

// fakeOutput captures the last frame pushed.
type fakeOutput struct {
	last   []byte
	pushes int
}

func (o *fakeOutput) Push(rgb []byte) {
	o.last = append(o.last[:0], rgb...)
	o.pushes++
}

type levels render.Levels

func (l levels) Levels() render.Levels { return render.Levels(l) }

func fill(c render.Color) layer.Factory {
	return func(*layer.Layer) (layer.Shard, error) {
		return layer.ShardFunc(func(l *layer.Layer) error {
			l.Canvas().Fill(c)
			return nil
		}), nil
	}
}

// flaky panics on its third frame.
type flaky struct{ n int }

func (f *flaky) Frame(l *layer.Layer) error {
	f.n++
	if f.n == 3 {
		panic("third frame")
	}
	l.Canvas().Fill(render.Color{G: 1, A: 1})
	return nil
}

func setup(t *testing.T, shards ...string) (*stack.Manager, *layer.Registry) {
	t.Helper()
	reg := layer.NewRegistry()
	reg.Register("blue", fill(render.Color{B: 1, A: 1}))
	reg.Register("red", fill(render.Color{R: 1, A: 1}))
	reg.Register("clear", fill(render.Transparent))
	reg.Register("flaky", func(*layer.Layer) (layer.Shard, error) { return &flaky{}, nil })
	reg.Register("failing", func(*layer.Layer) (layer.Shard, error) {
		return layer.ShardFunc(func(l *layer.Layer) error {
			l.Canvas().Fill(render.Color{R: 1, G: 1, B: 1, A: 1})
			return errors.New("sensor offline")
		}), nil
	})

	s, err := store.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ctor := func(id string, s store.Store, init map[string]any) (*layer.Layer, error) {
		l, err := layer.New(layer.Options{ID: id, Store: s, Dim: render.Dimensions{X: 2, Y: 1}, InitInfo: init})
		if err != nil {
			return nil, err
		}
		return l, l.Bind(reg)
	}
	m, err := stack.NewManager(s, ctor)
	if err != nil {
		t.Fatalf("stacks: %v", err)
	}
	for _, sh := range shards {
		if _, err := m.Active().Add(map[string]any{"shard_uuid": sh}); err != nil {
			t.Fatalf("add %s: %v", sh, err)
		}
	}
	return m, reg
}

func newEngine(t *testing.T, m *stack.Manager) (*Engine, *fakeOutput) {
	t.Helper()
	e, err := New(Config{Dim: render.Dimensions{X: 2, Y: 1}, FPS: 60}, m, levels{Brightness: 1, Gamma: 1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	out := &fakeOutput{}
	e.AddOutput(out)
	return e, out
}

func TestLaterLayerCoversEarlier(t *testing.T) {
	m, _ := setup(t, "blue", "red")
	e, out := newEngine(t, m)
	if err := e.RenderOnce(); err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.last[0] != 255 || out.last[2] != 0 {
		t.Fatalf("expected red on top, got %v", out.last[:3])
	}

	if err := m.Active().MoveLayerToIndex("1", 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	_ = e.RenderOnce()
	if out.last[0] != 0 || out.last[2] != 255 {
		t.Fatalf("expected blue on top after move, got %v", out.last[:3])
	}
}

func TestTransparentLayerKeepsDestination(t *testing.T) {
	m, _ := setup(t, "blue", "clear")
	e, out := newEngine(t, m)
	_ = e.RenderOnce()
	if out.last[2] != 255 {
		t.Fatalf("expected blue through transparent layer, got %v", out.last[:3])
	}
}

func TestFaultingLayerDoesNotStopFrame(t *testing.T) {
	m, _ := setup(t, "blue", "flaky", "clear", "red")
	if err := m.Active().Layers()[3].SetActive(false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	e, out := newEngine(t, m)
	var faults []*layer.FaultError
	e.OnFault(func(_ string, f *layer.FaultError) { faults = append(faults, f) })

	for i := 1; i <= 4; i++ {
		if err := e.RenderOnce(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if i == 3 {
			// flaky renders blank; blue shows through
			if out.last[1] != 0 || out.last[2] != 255 {
				t.Fatalf("frame 3: expected blue, got %v", out.last[:3])
			}
		} else if out.last[1] != 255 {
			t.Fatalf("frame %d: expected green, got %v", i, out.last[:3])
		}
	}
	if len(faults) != 1 || faults[0].Layer != "1" || faults[0].Shard != "flaky" {
		t.Fatalf("unexpected faults %+v", faults)
	}
	if s := e.Stats(); s.Faults != 1 || s.Frames != 4 || s.Layers != 3 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if !m.Active().Layers()[1].Active() {
		t.Fatalf("faulting layer should stay active")
	}
}

func TestFaultBeforeLaterLayers(t *testing.T) {
	m, _ := setup(t, "blue", "failing", "clear", "red")
	e, out := newEngine(t, m)
	_ = e.RenderOnce()
	if out.last[0] != 255 || out.last[1] != 0 {
		t.Fatalf("expected fourth layer to composite, got %v", out.last[:3])
	}
}

func TestSwitchRendersOtherStack(t *testing.T) {
	m, _ := setup(t, "red")
	if _, err := m.Inactive().Add(map[string]any{"shard_uuid": "blue"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	e, out := newEngine(t, m)
	_ = e.RenderOnce()
	if out.last[0] != 255 {
		t.Fatalf("expected red, got %v", out.last[:3])
	}
	if err := e.Do(func() error { return m.Activate(stack.B) }); err != nil {
		t.Fatalf("activate: %v", err)
	}
	_ = e.RenderOnce()
	if out.last[2] != 255 || out.last[0] != 0 {
		t.Fatalf("expected blue after switch, got %v", out.last[:3])
	}
}

func TestGlobalLevelsApplied(t *testing.T) {
	m, _ := setup(t, "red")
	e, err := New(Config{Dim: render.Dimensions{X: 2, Y: 1}}, m, levels{Brightness: 0.5, Gamma: 1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	out := &fakeOutput{}
	e.AddOutput(out)
	_ = e.RenderOnce()
	if out.last[0] != 128 {
		t.Fatalf("expected half red, got %v", out.last[:3])
	}
}

func TestRunPacesAndStops(t *testing.T) {
	m, _ := setup(t, "red")
	e, err := New(Config{Dim: render.Dimensions{X: 2, Y: 1}, FPS: 100}, m, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	out := &fakeOutput{}
	e.AddOutput(out)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.pushes < 5 || out.pushes > 40 {
		t.Fatalf("expected roughly 20 frames at 100 Hz in 200ms, got %d", out.pushes)
	}
}

func TestFramerateHistory(t *testing.T) {
	h := NewFramerateHistory(3)
	if h.Average() != 0 {
		t.Fatalf("expected 0 before samples")
	}
	for _, p := range []float64{100, 10, 20, 30} {
		h.RecordPeriodMS(p)
	}
	if got := h.Average(); got < 49.99 || got > 50.01 {
		t.Fatalf("expected 50 fps, got %f", got)
	}
}
