package shards

import (
	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// Pattern names a commissioning pattern.
type Pattern string

const (
	IndexSweep  Pattern = "index_sweep"
	RGBChannels Pattern = "rgb_channels"
	RowSweep    Pattern = "row_sweep"
)

// TestPattern steps through a wiring check pattern, holding each step for
// "hold" frames and looping when the pattern completes.
type TestPattern struct {
	pattern *variables.Choice
	hold    *variables.Integer

	step  int
	frame int
}

func NewTestPattern(l *layer.Layer) (layer.Shard, error) {
	p := &TestPattern{}
	var err error
	p.pattern, err = variables.NewOption("pattern", string(IndexSweep),
		[]string{string(IndexSweep), string(RGBChannels), string(RowSweep)},
		variables.WithResponders(variables.ResponderFunc(func(variables.Variable) { p.step, p.frame = 0, 0 })))
	if err != nil {
		return nil, err
	}
	if p.hold, err = variables.NewInteger("hold", 15, variables.WithRange(1, 600), variables.WithDefaultRange(1, 120)); err != nil {
		return nil, err
	}
	if err := declare(l, p.pattern, p.hold); err != nil {
		return nil, err
	}
	return p, nil
}

// Step is the pattern position shown by the next frame.
func (p *TestPattern) Step() int { return p.step }

func (p *TestPattern) Frame(l *layer.Layer) error {
	c := l.Canvas()
	c.Clear()
	white := render.Color{R: 1, G: 1, B: 1, A: 1}

	var steps int
	switch Pattern(p.pattern.Get()) {
	case IndexSweep:
		steps = c.Dim.Pixels()
		c.Pix[p.step%steps] = white
	case RGBChannels:
		steps = 3
		col := render.Color{A: 1}
		switch p.step % 3 {
		case 0:
			col.R = 1
		case 1:
			col.G = 1
		case 2:
			col.B = 1
		}
		c.Fill(col)
	case RowSweep:
		steps = c.Dim.Y
		y := p.step % steps
		for x := 0; x < c.Dim.X; x++ {
			c.Set(x, y, render.Color{G: 1, B: 1, A: 1})
		}
	}

	p.frame++
	if p.frame >= p.hold.Get() {
		p.frame = 0
		p.step = (p.step + 1) % steps
	}
	return nil
}
