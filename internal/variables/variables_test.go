package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/hidden-shades/internal/palette"
	"github.com/coreman2200/hidden-shades/internal/store"
)

type countingResponder struct {
	calls []string
}

func (c *countingResponder) Handle(v Variable) { c.calls = append(c.calls, v.Encoded()) }

func newStore(t *testing.T) *store.FS {
	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestDefaultMustValidate(t *testing.T) {
	_, err := NewFloating("speed", 2, WithRange(0, 1))
	assert.ErrorIs(t, err, ErrRange)
	_, err = NewOption("mode", "nope", []string{"a", "b"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetOutOfRangeKeepsValue(t *testing.T) {
	s := newStore(t)
	m := NewManager(s)
	speed, err := NewFloating("speed", 0.5, WithRange(0, 1))
	require.NoError(t, err)
	require.NoError(t, m.Declare(speed))
	rec := &countingResponder{}
	speed.AddResponder(rec)
	m.Initialize()
	rec.calls = nil

	err = speed.Set(1.5)
	assert.ErrorIs(t, err, ErrRange)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0.5, speed.Get())
	assert.Empty(t, rec.calls)

	require.NoError(t, speed.Set(0.2))
	assert.Equal(t, []string{"0.2"}, rec.calls)

	raw, err := s.Read("speed")
	require.NoError(t, err)
	assert.Equal(t, "0.2", string(raw))
}

func TestIntegerRejectsOverflow(t *testing.T) {
	count, err := NewInteger("count", 3)
	require.NoError(t, err)

	for _, in := range []string{"1e300", "-1e300", "9.3e18"} {
		err := count.SetEncoded(in)
		assert.ErrorIs(t, err, ErrValidation, in)
		assert.Equal(t, 3, count.Get())
	}
	require.NoError(t, count.SetEncoded("42.0"))
	assert.Equal(t, 42, count.Get())
}

func TestValueSurvivesRestart(t *testing.T) {
	s := newStore(t)
	declare := func() *Floating {
		m := NewManager(s)
		speed, err := NewFloating("speed", 0.5, WithRange(0, 1))
		require.NoError(t, err)
		require.NoError(t, m.Declare(speed))
		m.Initialize()
		return speed
	}
	require.NoError(t, declare().Set(0.2))
	assert.Equal(t, 0.2, declare().Get())
}

func TestInitializeFallsBackOnGarbage(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Write("count", []byte("seven")))
	require.NoError(t, s.Write("level", []byte("500")))

	m := NewManager(s)
	count, _ := NewInteger("count", 3)
	level, _ := NewInteger("level", 10, WithRange(0, 100))
	require.NoError(t, m.Declare(count))
	require.NoError(t, m.Declare(level))
	rec := &countingResponder{}
	count.AddResponder(rec)
	m.Initialize()

	assert.Equal(t, 3, count.Get())
	assert.Equal(t, 10, level.Get())
	assert.Len(t, rec.calls, 1)
	raw, _ := s.Read("level")
	assert.Equal(t, "10", string(raw))
}

func TestRoundTrip(t *testing.T) {
	b, _ := NewBoolean("on", true)
	i, _ := NewInteger("n", -4)
	f, _ := NewFloating("x", 0.125)
	o, _ := NewOption("mode", "b", []string{"a", "b"})
	str, _ := NewString("label", "hello world")
	seq := palette.NewSequence(palette.DiscreteLinear, 0x40FF0000, 0xFF00FF00)
	cs, _ := NewColorSequence("pal", seq)

	assert.Equal(t, "True", b.Encoded())
	for _, v := range []Variable{b, i, f, o, str, cs} {
		enc := v.Encoded()
		require.NoError(t, v.SetEncoded(enc), v.Name())
		assert.Equal(t, enc, v.Encoded(), v.Name())
	}
	back, err := cs.Deserialize(cs.Serialize(seq))
	require.NoError(t, err)
	assert.True(t, back.Equal(seq))
	assert.Equal(t, palette.DiscreteLinear, back.Interpolator)
}

func TestColorSequenceRejectsUnknownInterpolator(t *testing.T) {
	cs, _ := NewColorSequence("pal", palette.NewSequence("", 1))
	err := cs.SetEncoded(`{"colors":[1,2],"interpolator":"CUBIC"}`)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, len(cs.Get().Colors))
}

func TestBooleanEncoding(t *testing.T) {
	b, _ := NewBoolean("on", false)
	require.NoError(t, b.SetEncoded("True"))
	assert.True(t, b.Get())
	assert.ErrorIs(t, b.SetEncoded("maybe"), ErrValidation)
	assert.True(t, b.Get())
}

func TestDictAndInfo(t *testing.T) {
	m := NewManager(newStore(t))
	f, _ := NewFloating("speed", 0.5, WithRange(0, 1), WithDefaultRange(0, 0.8), WithDescription("how fast"))
	o, _ := NewOption("mode", "a", []string{"a", "b"})
	require.NoError(t, m.Declare(f))
	require.NoError(t, m.Declare(o))
	assert.Error(t, m.Declare(o))

	d := f.Dict()
	assert.Equal(t, TypeFloating, d.Typecode)
	assert.Equal(t, "speed", d.ID)
	require.NotNil(t, d.Description)
	assert.Equal(t, "how fast", *d.Description)
	assert.Equal(t, "0.5", d.Default)
	assert.Equal(t, []float64{0, 0.8}, d.Data["default_range"])
	assert.Equal(t, []float64{0, 1}, d.Data["allowed_range"])
	assert.Equal(t, []string{"a", "b"}, o.Dict().Data["options"])

	assert.Equal(t, Info{Total: 2, IDs: []string{"mode", "speed"}}, m.Info())

	_, err := m.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknown)
	_, err = m.Set("mode", "c")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRespondersArePerInstance(t *testing.T) {
	a, _ := NewInteger("a", 1)
	b, _ := NewInteger("b", 1)
	rec := &countingResponder{}
	a.AddResponder(rec)
	require.NoError(t, b.Set(2))
	assert.Empty(t, rec.calls)
}
