package palette

import (
	"errors"
	"fmt"
	"math"
)

// Interpolator selects how a Sequence maps a phase onto its colors.
type Interpolator string

const (
	ContinuousCircular Interpolator = "CONTINUOUS_CIRCULAR"
	DiscreteCircular   Interpolator = "DISCRETE_CIRCULAR"
	ContinuousLinear   Interpolator = "CONTINUOUS_LINEAR"
	DiscreteLinear     Interpolator = "DISCRETE_LINEAR"
)

var interpolators = []Interpolator{ContinuousCircular, DiscreteCircular, ContinuousLinear, DiscreteLinear}

// Interpolators lists the known modes in a stable order.
func Interpolators() []Interpolator {
	return append([]Interpolator(nil), interpolators...)
}

// ParseInterpolator accepts one of the known mode names.
func ParseInterpolator(s string) (Interpolator, error) {
	for _, i := range interpolators {
		if string(i) == s {
			return i, nil
		}
	}
	return "", fmt.Errorf("unknown interpolator %q", s)
}

var ErrEmpty = errors.New("palette: sequence has no colors")

// Sequence is an ordered palette plus its interpolation mode.
type Sequence struct {
	Colors       []Color
	Interpolator Interpolator
}

// NewSequence copies colors. An empty interpolator means ContinuousCircular.
func NewSequence(interp Interpolator, colors ...Color) Sequence {
	if interp == "" {
		interp = ContinuousCircular
	}
	return Sequence{Colors: append([]Color(nil), colors...), Interpolator: interp}
}

// Validate reports an empty sequence or an unknown interpolator.
func (s Sequence) Validate() error {
	if len(s.Colors) == 0 {
		return ErrEmpty
	}
	_, err := ParseInterpolator(string(s.Interpolator))
	return err
}

// Equal compares colors and mode.
func (s Sequence) Equal(o Sequence) bool {
	if s.Interpolator != o.Interpolator || len(s.Colors) != len(o.Colors) {
		return false
	}
	for i := range s.Colors {
		if s.Colors[i] != o.Colors[i] {
			return false
		}
	}
	return true
}

// At returns the color at phase. Circular modes wrap the phase into [0,1);
// linear modes clamp it to [0,1].
func (s Sequence) At(phase float64) Color {
	n := len(s.Colors)
	switch {
	case n == 0:
		return 0
	case n == 1 || math.IsNaN(phase):
		return s.Colors[0]
	}

	switch s.Interpolator {
	case DiscreteCircular:
		p := wrap(phase)
		return s.Colors[int(p*float64(n))%n]
	case ContinuousLinear:
		pos := clamp(phase) * float64(n-1)
		i := int(pos)
		if i >= n-1 {
			return s.Colors[n-1]
		}
		return Lerp(s.Colors[i], s.Colors[i+1], pos-float64(i))
	case DiscreteLinear:
		i := int(clamp(phase) * float64(n))
		if i >= n {
			i = n - 1
		}
		return s.Colors[i]
	default:
		pos := wrap(phase) * float64(n)
		i := int(pos) % n
		return Lerp(s.Colors[i], s.Colors[(i+1)%n], pos-math.Floor(pos))
	}
}

func wrap(p float64) float64 {
	p = p - math.Floor(p)
	if p >= 1 {
		p = 0
	}
	return p
}

func clamp(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
