// Package globals holds the process wide user settings: output
// brightness, gamma and the shared palette.
package globals

import (
	"github.com/coreman2200/hidden-shades/internal/palette"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/store"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// AlphaHalf is OR'd into the default palette entries.
const AlphaHalf palette.Color = 0x40000000

// DefaultPalette is a 16 step rainbow.
var DefaultPalette = func() palette.Sequence {
	rainbow := []palette.Color{
		0xFF0000, 0xFF5F00, 0xFFBF00, 0xDFFF00,
		0x7FFF00, 0x1FFF00, 0x00FF3F, 0x00FF9F,
		0x00FFFF, 0x009FFF, 0x003FFF, 0x1F00FF,
		0x7F00FF, 0xDF00FF, 0xFF00BF, 0xFF005F,
	}
	for i := range rainbow {
		rainbow[i] |= AlphaHalf
	}
	return palette.NewSequence(palette.ContinuousCircular, rainbow...)
}()

type Manager struct {
	vars       *variables.Manager
	brightness *variables.Floating
	gamma      *variables.Floating
	palette    *variables.ColorSequence
}

// New declares and restores the global variables under s/vars.
func New(s store.Store) (*Manager, error) {
	m := &Manager{vars: variables.NewManager(store.Sub(s, "vars"))}
	var err error
	if m.brightness, err = variables.NewFloating("brightness", 1.0,
		variables.WithRange(0, 1), variables.WithDescription("output brightness")); err != nil {
		return nil, err
	}
	if m.gamma, err = variables.NewFloating("gamma", 1.0,
		variables.WithRange(0.1, 5), variables.WithDefaultRange(0.1, 3), variables.WithDescription("output gamma")); err != nil {
		return nil, err
	}
	if m.palette, err = variables.NewColorSequence("palette", DefaultPalette,
		variables.WithDescription("palette shared by layers")); err != nil {
		return nil, err
	}
	for _, v := range []variables.Variable{m.brightness, m.gamma, m.palette} {
		if err := m.vars.Declare(v); err != nil {
			return nil, err
		}
	}
	m.vars.Initialize()
	return m, nil
}

func (m *Manager) Variables() *variables.Manager { return m.vars }
func (m *Manager) Palette() palette.Sequence     { return m.palette.Get() }

// Levels is the correction applied to every output frame.
func (m *Manager) Levels() render.Levels {
	return render.Levels{Brightness: m.brightness.Get(), Gamma: m.gamma.Get()}
}
