package shards

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/hidden-shades/internal/artnet"
	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/palette"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/store"
)

type fixedPalette palette.Sequence

func (f fixedPalette) Palette() palette.Sequence { return palette.Sequence(f) }

var green = palette.NewSequence(palette.DiscreteCircular, 0xFF00FF00)

func bind(t *testing.T, reg *layer.Registry, shard string, dim render.Dimensions) *layer.Layer {
	t.Helper()
	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	l, err := layer.New(layer.Options{
		ID:       "0",
		Store:    s,
		Dim:      dim,
		Globals:  fixedPalette(green),
		InitInfo: map[string]any{"shard_uuid": shard},
	})
	require.NoError(t, err)
	require.NoError(t, l.Bind(reg))
	return l
}

func builtins() *layer.Registry {
	reg := layer.NewRegistry()
	Register(reg, Deps{})
	return reg
}

func TestRegisterBuiltins(t *testing.T) {
	assert.Equal(t, []string{"bounce", "gradient", "randomcolorwalk", "ripple", "solid", "testpattern"}, builtins().List())
	assert.Len(t, Names(), len(builtins().List())+1)
}

func TestSolidFillsFromPalette(t *testing.T) {
	l := bind(t, builtins(), "solid", render.Dimensions{X: 3, Y: 2})
	require.NoError(t, l.Run())
	for _, p := range l.Canvas().Pix {
		assert.Equal(t, render.Color{G: 1, A: 1}, p)
	}
}

func TestRandomColorWalkDeclaresRanges(t *testing.T) {
	l := bind(t, builtins(), "randomcolorwalk", render.Dimensions{X: 2, Y: 2})
	dicts := l.Variables().Dicts()
	require.Contains(t, dicts, "speed")
	require.Contains(t, dicts, "randomness")
	assert.Equal(t, "0.001", dicts["speed"].Value)
	require.NoError(t, l.Run())
	assert.Equal(t, render.Color{G: 1, A: 1}, l.Canvas().Pix[0])
}

func TestGradientSpreadsPalette(t *testing.T) {
	l := bind(t, builtins(), "gradient", render.Dimensions{X: 4, Y: 1})
	require.NoError(t, l.UseLocalPalette(true))
	_, err := l.StandardVariables().Set("palette",
		`{"colors":[4278190080,4294967295],"interpolator":"CONTINUOUS_LINEAR"}`)
	require.NoError(t, err)
	_, err = l.Variables().Set("speed", "0")
	require.NoError(t, err)

	require.NoError(t, l.Run())
	pix := l.Canvas().Pix
	assert.InDelta(t, 0, pix[0].R, 1e-6)
	for i := 1; i < len(pix); i++ {
		assert.Greater(t, pix[i].R, pix[i-1].R)
	}
}

func TestTestPatternIndexSweep(t *testing.T) {
	l := bind(t, builtins(), "testpattern", render.Dimensions{X: 2, Y: 2})
	_, err := l.Variables().Set("hold", "1")
	require.NoError(t, err)

	white := render.Color{R: 1, G: 1, B: 1, A: 1}
	for step := 0; step < 5; step++ {
		require.NoError(t, l.Run())
		for i, p := range l.Canvas().Pix {
			if i == step%4 {
				assert.Equal(t, white, p, "step %d pixel %d", step, i)
			} else {
				assert.Equal(t, render.Transparent, p, "step %d pixel %d", step, i)
			}
		}
	}
}

func TestTestPatternRGBChannels(t *testing.T) {
	l := bind(t, builtins(), "testpattern", render.Dimensions{X: 2, Y: 1})
	_, err := l.Variables().Set("pattern", "rgb_channels")
	require.NoError(t, err)
	_, err = l.Variables().Set("hold", "2")
	require.NoError(t, err)

	want := []render.Color{{R: 1, A: 1}, {R: 1, A: 1}, {G: 1, A: 1}, {G: 1, A: 1}, {B: 1, A: 1}, {B: 1, A: 1}, {R: 1, A: 1}}
	for i, w := range want {
		require.NoError(t, l.Run())
		assert.Equal(t, w, l.Canvas().Pix[1], "frame %d", i)
	}
}

func TestBounceDrawsBallOverBackground(t *testing.T) {
	l := bind(t, builtins(), "bounce", render.Dimensions{X: 20, Y: 10})
	_, err := l.Variables().Set("speed", "0.5")
	require.NoError(t, err)
	_, err = l.Variables().Set("diameter", "0.3")
	require.NoError(t, err)

	require.NoError(t, l.Run())
	c := l.Canvas()
	bg := c.At(0, 0)
	assert.InDelta(t, 1, bg.G, 0.01)
	assert.InDelta(t, 1, bg.A, 0.01)

	ball := c.At(9, 4)
	assert.InDelta(t, 1, ball.B, 0.05)
	assert.InDelta(t, 0, ball.G, 0.05)
}

func TestArtnetShardReadsProvider(t *testing.T) {
	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	p, err := artnet.NewProvider(conn, s, artnet.ProviderConfig{PollTimeout: time.Millisecond})
	require.NoError(t, err)

	reg := layer.NewRegistry()
	Register(reg, Deps{Provider: p})
	assert.Contains(t, reg.List(), "artnet")

	l := bind(t, reg, "artnet", render.Dimensions{X: 2, Y: 1})
	_, err = l.Variables().Set("start_universe", "3")
	require.NoError(t, err)
	assert.Contains(t, p.Universes(), uint16(3))

	pkt := artnet.NewPacket(0)
	pkt.SetUniverse(3)
	require.NoError(t, pkt.SetData([]byte{255, 0, 0, 0, 51, 255}))
	ok, err := p.Ingest(pkt.Bytes())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Run())
	pix := l.Canvas().Pix
	assert.Equal(t, render.Color{R: 1, A: 1}, pix[0])
	assert.InDelta(t, 0.2, pix[1].G, 1e-6)
	assert.InDelta(t, 1, pix[1].B, 1e-6)
}

func TestRippleStaysBoundedAndZeroMean(t *testing.T) {
	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	l, err := layer.New(layer.Options{ID: "0", Store: s, Dim: render.Dimensions{X: 8, Y: 6}, Globals: fixedPalette(green)})
	require.NoError(t, err)
	sh, err := NewRipple(l)
	require.NoError(t, err)
	r := sh.(*Ripple)
	l.Variables().Initialize()
	_, err = l.Variables().Set("wind", "0")
	require.NoError(t, err)

	require.NoError(t, r.Frame(l))
	start := r.Energy()
	require.Greater(t, start, 0.0)
	for i := 0; i < 240; i++ {
		require.NoError(t, r.Frame(l))
	}
	var mean float64
	for _, h := range r.H {
		mean += h
	}
	assert.InDelta(t, 0, mean/float64(len(r.H)), 1e-9)
	assert.Less(t, r.Energy(), start)
}

func TestRippleColorsByHeight(t *testing.T) {
	l := bind(t, builtins(), "ripple", render.Dimensions{X: 8, Y: 6})
	require.NoError(t, l.UseLocalPalette(true))
	_, err := l.StandardVariables().Set("palette",
		`{"colors":[4278190080,4294967295],"interpolator":"CONTINUOUS_LINEAR"}`)
	require.NoError(t, err)
	_, err = l.Variables().Set("spread", "8")
	require.NoError(t, err)

	require.NoError(t, l.Run())
	lo, hi := float32(1), float32(0)
	for _, p := range l.Canvas().Pix {
		lo = min(lo, p.R)
		hi = max(hi, p.R)
	}
	assert.Greater(t, hi, lo)
}
