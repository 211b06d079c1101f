package shards

import (
	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// Solid fills the canvas with one color taken from the layer palette.
type Solid struct {
	phase *variables.Floating
}

func NewSolid(l *layer.Layer) (layer.Shard, error) {
	phase, err := variables.NewFloating("phase", 0, variables.WithDescription("position in the palette"))
	if err != nil {
		return nil, err
	}
	if err := declare(l, phase); err != nil {
		return nil, err
	}
	return &Solid{phase: phase}, nil
}

func (s *Solid) Frame(l *layer.Layer) error {
	l.Canvas().Fill(render.FromPalette(l.Palette().At(s.phase.Get())))
	return nil
}

