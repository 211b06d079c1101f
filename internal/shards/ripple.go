package shards

import (
	"math"

	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// Ripple runs a damped height-field wave over the display and colors each
// pixel from the palette by its height.
type Ripple struct {
	wave    *variables.Floating
	damping *variables.Floating
	wind    *variables.Floating
	spread  *variables.Floating

	w, h  int
	H, V  []float64
	tmp   []float64
	phase float64
}

const rippleDT = 1.0 / 60

func NewRipple(l *layer.Layer) (layer.Shard, error) {
	r := &Ripple{}
	var err error
	if r.wave, err = variables.NewFloating("wave", 0.9, variables.WithRange(0, 4), variables.WithDefaultRange(0, 2)); err != nil {
		return nil, err
	}
	if r.damping, err = variables.NewFloating("damping", 0.02, variables.WithRange(0, 1), variables.WithDefaultRange(0, 0.2)); err != nil {
		return nil, err
	}
	if r.wind, err = variables.NewFloating("wind", 0.5, variables.WithDefaultRange(0, 2)); err != nil {
		return nil, err
	}
	if r.spread, err = variables.NewFloating("spread", 4, variables.WithRange(0, 64), variables.WithDefaultRange(0, 16)); err != nil {
		return nil, err
	}
	if err := declare(l, r.wave, r.damping, r.wind, r.spread); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Ripple) resize(w, h int) {
	r.w, r.h = w, h
	n := w * h
	r.H = make([]float64, n)
	r.V = make([]float64, n)
	r.tmp = make([]float64, n)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.H[y*w+x] = math.Sin(float64(37*x+57*y))*0.03 + math.Sin(float64(11*x+23*y))*0.02
		}
	}
}

func (r *Ripple) at(x, y int) float64 {
	return r.H[clampi(y, 0, r.h-1)*r.w+clampi(x, 0, r.w-1)]
}

func (r *Ripple) step() {
	c := r.wave.Get()
	damp := 1 - r.damping.Get()
	wind := r.wind.Get()
	r.phase += rippleDT

	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			i := y*r.w + x
			lap := r.at(x-1, y) + r.at(x+1, y) + r.at(x, y-1) + r.at(x, y+1) - 4*r.H[i]
			r.V[i] = (r.V[i] + c*c*lap*rippleDT) * damp
			r.V[i] += wind * 0.02 * math.Sin(0.11*float64(x)+0.13*float64(y)+1.7*r.phase)
		}
	}
	for i := range r.H {
		r.H[i] += r.V[i] * rippleDT
	}

	// 1-4-1 smoothing, horizontal then vertical; heights stay zero-mean.
	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			r.tmp[y*r.w+x] = (r.at(x-1, y) + 4*r.at(x, y) + r.at(x+1, y)) / 6
		}
	}
	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			u := r.tmp[clampi(y-1, 0, r.h-1)*r.w+x]
			d := r.tmp[clampi(y+1, 0, r.h-1)*r.w+x]
			r.H[y*r.w+x] = (u + 4*r.tmp[y*r.w+x] + d) / 6
		}
	}
	var mean float64
	for _, h := range r.H {
		mean += h
	}
	mean /= float64(len(r.H))
	for i := range r.H {
		r.H[i] -= mean
	}
}

func (r *Ripple) Frame(l *layer.Layer) error {
	c := l.Canvas()
	if c.Dim.X*c.Dim.Y == 0 {
		return nil
	}
	if c.Dim.X != r.w || c.Dim.Y != r.h {
		r.resize(c.Dim.X, c.Dim.Y)
	}
	r.step()

	pal := l.Palette()
	spread := r.spread.Get()
	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			pos := 0.5 + r.H[y*r.w+x]*spread
			c.Set(x, y, render.FromPalette(pal.At(pos)))
		}
	}
	return nil
}

// Energy is the sum of squared heights.
func (r *Ripple) Energy() float64 {
	var e float64
	for _, h := range r.H {
		e += h * h
	}
	return e
}

func clampi(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
