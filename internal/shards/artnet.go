package shards

import (
	"sync"

	"github.com/coreman2200/hidden-shades/internal/artnet"
	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// Artnet shows the RGB channels received by the shared provider, one
// pixel per three channels starting at start_universe.
type Artnet struct {
	provider *artnet.Provider
	start    *variables.Integer
	pixels   int

	mu    sync.Mutex
	coord *artnet.Coordinator
}

// ArtnetFactory binds the shard to p.
func ArtnetFactory(p *artnet.Provider) layer.Factory {
	return func(l *layer.Layer) (layer.Shard, error) {
		a := &Artnet{provider: p, pixels: l.Dim().Pixels()}
		var err error
		a.start, err = variables.NewInteger("start_universe", 0,
			variables.WithRange(0, float64(artnet.UniverseMask)),
			variables.WithDefaultRange(0, 64),
			variables.WithResponders(variables.ResponderFunc(func(variables.Variable) { a.rebuild() })))
		if err != nil {
			return nil, err
		}
		if err := declare(l, a.start); err != nil {
			return nil, err
		}
		a.rebuild()
		return a, nil
	}
}

func (a *Artnet) rebuild() {
	coord := artnet.NewCoordinator(a.provider, a.pixels*3, artnet.CoordinatorOptions{
		StartUniverse: uint16(a.start.Get()),
	})
	a.provider.RegisterUniverses(coord.Universes()...)
	a.mu.Lock()
	a.coord = coord
	a.mu.Unlock()
}

// Universes lists the universes the shard currently reads.
func (a *Artnet) Universes() []uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.coord.Universes()
}

func (a *Artnet) Frame(l *layer.Layer) error {
	a.mu.Lock()
	coord := a.coord
	a.mu.Unlock()

	pix := l.Canvas().Pix
	for i := range pix {
		pix[i] = render.Color{
			R: float32(coord.At(i*3)) / 255,
			G: float32(coord.At(i*3+1)) / 255,
			B: float32(coord.At(i*3+2)) / 255,
			A: 1,
		}
	}
	return nil
}
