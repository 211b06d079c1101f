package shards

import (
	"math/rand"
	"time"

	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// RandomColorWalk fills the canvas with a palette color whose position
// drifts by speed plus a random step each frame.
type RandomColorWalk struct {
	speed      *variables.Floating
	randomness *variables.Floating
	rng        *rand.Rand
	value      float64
}

func NewRandomColorWalk(l *layer.Layer) (layer.Shard, error) {
	w := &RandomColorWalk{value: 0.5, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	var err error
	if w.speed, err = variables.NewFloating("speed", 0.001, variables.WithDefaultRange(0, 0.02)); err != nil {
		return nil, err
	}
	if w.randomness, err = variables.NewFloating("randomness", 0.01, variables.WithDefaultRange(0, 0.08)); err != nil {
		return nil, err
	}
	if err := declare(l, w.speed, w.randomness); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RandomColorWalk) Frame(l *layer.Layer) error {
	w.value += w.speed.Get() + w.randomness.Get()*(w.rng.Float64()-0.5)
	l.Canvas().Fill(render.FromPalette(l.Palette().At(w.value)))
	return nil
}
