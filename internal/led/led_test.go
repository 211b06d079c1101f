package led

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/hidden-shades/internal/render"
)

func TestLayoutSerpentine(t *testing.T) {
	l := Layout{Dim: render.Dimensions{X: 3, Y: 2}, Serpentine: true}
	assert.Equal(t, 0, l.Index(0, 0))
	assert.Equal(t, 2, l.Index(2, 0))
	assert.Equal(t, 5, l.Index(0, 1))
	assert.Equal(t, 3, l.Index(2, 1))

	flat := Layout{Dim: render.Dimensions{X: 3, Y: 2}}
	assert.Equal(t, 3, flat.Index(0, 1))
}

func TestArrangeOrdersPixelsAndChannels(t *testing.T) {
	l := Layout{Dim: render.Dimensions{X: 2, Y: 2}, Serpentine: true}
	src := []byte{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	grb, err := ParseColorOrder("grb")
	require.NoError(t, err)
	got := l.Arrange(nil, src, grb)
	assert.Equal(t, []byte{
		2, 1, 3, 5, 4, 6,
		11, 10, 12, 8, 7, 9,
	}, got)
}

func TestParseColorOrder(t *testing.T) {
	o, err := ParseColorOrder("")
	require.NoError(t, err)
	assert.Equal(t, RGB, o)
	_, err = ParseColorOrder("RRB")
	assert.Error(t, err)
	o, err = ParseColorOrder("BRG")
	require.NoError(t, err)
	assert.Equal(t, "BRG", o.String())
}

func TestNRZOverRecordedSPI(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewNRZ(spitest.NewRecordRaw(&buf), 2, 2_500_000)
	require.NoError(t, err)
	assert.Equal(t, "nrzled{recordraw}", d.String())

	require.NoError(t, d.Write([]byte{0xFF, 0, 0, 0, 0, 0xFF}))
	first := append([]byte(nil), buf.Bytes()...)
	assert.NotEmpty(t, first)

	buf.Reset()
	require.NoError(t, d.Write([]byte{0, 0xFF, 0, 0, 0, 0xFF}))
	assert.NotEqual(t, first, buf.Bytes())

	assert.Error(t, d.Write([]byte{1, 2, 3}))
	require.NoError(t, d.Close())
	assert.Error(t, d.Write([]byte{0, 0, 0, 0, 0, 0}))
}

type failing struct{ Sim }

func (f *failing) Write([]byte) error { return errors.New("bus fault") }

func TestOutputPushesArrangedFrames(t *testing.T) {
	sim := NewSim()
	out := NewOutput("sim", sim, Layout{Dim: render.Dimensions{X: 2, Y: 1}}, ColorOrder{'B', 'G', 'R'})
	out.Push([]byte{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []byte{3, 2, 1, 6, 5, 4}, sim.Last())
	assert.Equal(t, uint64(1), sim.Frames())

	out.Push([]byte{1, 2})
	assert.Equal(t, uint64(1), out.Errors())
	assert.Equal(t, uint64(1), sim.Frames())
}

func TestOutputCountsDriverErrors(t *testing.T) {
	out := NewOutput("bad", &failing{}, Layout{Dim: render.Dimensions{X: 1, Y: 1}}, RGB)
	out.Push([]byte{1, 2, 3})
	out.Push([]byte{1, 2, 3})
	assert.Equal(t, uint64(2), out.Errors())
}
