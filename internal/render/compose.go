package render

import (
	"fmt"
	"strings"
)

// Mode is a Porter-Duff compositing operator.
type Mode uint8

const (
	ModeClear Mode = iota
	ModeCopy
	ModeSource
	ModeDestination
	ModeSourceOver
	ModeDestinationOver
	ModeSourceIn
	ModeDestinationIn
	ModeSourceOut
	ModeDestinationOut
	ModeSourceAtop
	ModeDestinationAtop
	ModeXor
	ModePlusLighter
	ModePlusDarker
	modeCount
)

var modeNames = [modeCount]string{
	"ALPHA_CLEAR",
	"ALPHA_COPY",
	"ALPHA_SOURCE",
	"ALPHA_DESTINATION",
	"ALPHA_SOURCE_OVER",
	"ALPHA_DESTINATION_OVER",
	"ALPHA_SOURCE_IN",
	"ALPHA_DESTINATION_IN",
	"ALPHA_SOURCE_OUT",
	"ALPHA_DESTINATION_OUT",
	"ALPHA_SOURCE_ATOP",
	"ALPHA_DESTINATION_ATOP",
	"ALPHA_XOR",
	"ALPHA_PLUS_LIGHTER",
	"ALPHA_PLUS_DARKER",
}

// DefaultMode is used by new layers.
const DefaultMode = ModeSourceOver

func (m Mode) String() string {
	if m < modeCount {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ModeNames lists every operator name in enum order.
func ModeNames() []string {
	return append([]string(nil), modeNames[:]...)
}

// ParseMode accepts an operator name, case insensitively.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(n, s) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown composition mode %q", s)
}

// BlendFunc combines premultiplied source and destination samples.
type BlendFunc func(s, d Color) Color

// GetBlendFunc returns the operator for m, source-over for unknown modes.
func GetBlendFunc(m Mode) BlendFunc {
	switch m {
	case ModeClear:
		return blendClear
	case ModeCopy, ModeSource:
		return blendSource
	case ModeDestination:
		return blendDestination
	case ModeSourceOver:
		return blendSourceOver
	case ModeDestinationOver:
		return blendDestinationOver
	case ModeSourceIn:
		return blendSourceIn
	case ModeDestinationIn:
		return blendDestinationIn
	case ModeSourceOut:
		return blendSourceOut
	case ModeDestinationOut:
		return blendDestinationOut
	case ModeSourceAtop:
		return blendSourceAtop
	case ModeDestinationAtop:
		return blendDestinationAtop
	case ModeXor:
		return blendXor
	case ModePlusLighter:
		return blendPlusLighter
	case ModePlusDarker:
		return blendPlusDarker
	default:
		return blendSourceOver
	}
}

// Compose writes op(src, d) into dst. dst must not alias src or d.
func Compose(dst, src, d *Canvas, m Mode) error {
	if len(dst.Pix) != len(src.Pix) || len(dst.Pix) != len(d.Pix) {
		return fmt.Errorf("compose: size mismatch %d/%d/%d", len(dst.Pix), len(src.Pix), len(d.Pix))
	}
	if &dst.Pix[0] == &src.Pix[0] || &dst.Pix[0] == &d.Pix[0] {
		return fmt.Errorf("compose: destination aliases an input")
	}
	fn := GetBlendFunc(m)
	for i := range dst.Pix {
		dst.Pix[i] = fn(src.Pix[i], d.Pix[i])
	}
	return nil
}

// a*x + b*y per channel.
func lin(x Color, a float32, y Color, b float32) Color {
	return Color{
		R: x.R*a + y.R*b,
		G: x.G*a + y.G*b,
		B: x.B*a + y.B*b,
		A: x.A*a + y.A*b,
	}
}

func blendClear(_, _ Color) Color      { return Transparent }
func blendSource(s, _ Color) Color     { return s }
func blendDestination(_, d Color) Color { return d }

func blendSourceOver(s, d Color) Color      { return lin(s, 1, d, 1-s.A) }
func blendDestinationOver(s, d Color) Color { return lin(d, 1, s, 1-d.A) }
func blendSourceIn(s, d Color) Color        { return lin(s, d.A, d, 0) }
func blendDestinationIn(s, d Color) Color   { return lin(d, s.A, s, 0) }
func blendSourceOut(s, d Color) Color       { return lin(s, 1-d.A, d, 0) }
func blendDestinationOut(s, d Color) Color  { return lin(d, 1-s.A, s, 0) }
func blendSourceAtop(s, d Color) Color      { return lin(s, d.A, d, 1-s.A) }
func blendDestinationAtop(s, d Color) Color { return lin(d, s.A, s, 1-d.A) }
func blendXor(s, d Color) Color             { return lin(s, 1-d.A, d, 1-s.A) }

func blendPlusLighter(s, d Color) Color {
	return Color{
		R: minf(s.R+d.R, 1),
		G: minf(s.G+d.G, 1),
		B: minf(s.B+d.B, 1),
		A: minf(s.A+d.A, 1),
	}
}

func blendPlusDarker(s, d Color) Color {
	return Color{
		R: maxf(s.R+d.R-1, 0),
		G: maxf(s.G+d.G-1, 0),
		B: maxf(s.B+d.B-1, 0),
		A: maxf(s.A+d.A-1, 0),
	}
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
