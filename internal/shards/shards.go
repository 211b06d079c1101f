// Package shards contains the built-in frame generators a layer can be
// bound to.
package shards

import (
	"github.com/coreman2200/hidden-shades/internal/artnet"
	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// Deps are the shared collaborators some shards read from.
type Deps struct {
	Provider *artnet.Provider
}

// Register adds every built-in shard to reg.
func Register(reg *layer.Registry, deps Deps) {
	reg.Register("solid", NewSolid)
	reg.Register("gradient", NewGradient)
	reg.Register("randomcolorwalk", NewRandomColorWalk)
	reg.Register("bounce", NewBounce)
	reg.Register("testpattern", NewTestPattern)
	reg.Register("ripple", NewRipple)
	if deps.Provider != nil {
		reg.Register("artnet", ArtnetFactory(deps.Provider))
	}
}

// Names lists every built-in shard id, including those that need Deps.
func Names() []string {
	return []string{"artnet", "bounce", "gradient", "randomcolorwalk", "ripple", "solid", "testpattern"}
}

// declare registers each variable on the layer's user manager.
func declare(l *layer.Layer, vs ...variables.Variable) error {
	for _, v := range vs {
		if err := l.Variables().Declare(v); err != nil {
			return err
		}
	}
	return nil
}
