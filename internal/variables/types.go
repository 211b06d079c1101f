package variables

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/coreman2200/hidden-shades/internal/palette"
)

type (
	Boolean       = Value[bool]
	Integer       = Value[int]
	Floating      = Value[float64]
	Choice        = Value[string]
	String        = Value[string]
	ColorSequence = Value[palette.Sequence]
)

func eq[T comparable](a, b T) bool { return a == b }

// NewBoolean declares a boolean. Values serialize as "True" and "False".
func NewBoolean(name string, def bool, opts ...Option) (*Boolean, error) {
	o := collect(opts)
	tags := o.tags
	return newValue(TypeBoolean, name, def, codec[bool]{
		validate: func(bool) error { return nil },
		encode: func(b bool) string {
			if b {
				return "True"
			}
			return "False"
		},
		decode: func(s string) (bool, error) {
			b, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return false, fmt.Errorf("%w: %q is not a boolean", ErrValidation, s)
			}
			return b, nil
		},
		equal: eq[bool],
		data:  func() map[string]any { return map[string]any{"tags": []string{tags[0], tags[1]}} },
	}, o)
}

func rangeData(o *options, fallback [2]float64) func() map[string]any {
	def := fallback
	if o.defaultRange != nil {
		def = *o.defaultRange
	}
	allowed := o.allowedRange
	return func() map[string]any {
		m := map[string]any{"default_range": []float64{def[0], def[1]}, "allowed_range": nil}
		if allowed != nil {
			m["allowed_range"] = []float64{allowed[0], allowed[1]}
		}
		return m
	}
}

func checkRange(x float64, r *[2]float64) error {
	if r == nil {
		return nil
	}
	if x < r[0] || x > r[1] {
		return fmt.Errorf("%v not in [%v, %v]: %w", x, r[0], r[1], ErrRange)
	}
	return nil
}

// NewInteger declares an integer. The default client range is [0,100].
func NewInteger(name string, def int, opts ...Option) (*Integer, error) {
	o := collect(opts)
	return newValue(TypeInteger, name, def, codec[int]{
		validate: func(x int) error { return checkRange(float64(x), o.allowedRange) },
		encode:   strconv.Itoa,
		decode: func(s string) (int, error) {
			s = strings.TrimSpace(s)
			if n, err := strconv.Atoi(s); err == nil {
				return n, nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || f != math.Trunc(f) {
				return 0, fmt.Errorf("%w: %q is not an integer", ErrValidation, s)
			}
			if f < math.MinInt || f >= math.MaxInt {
				return 0, fmt.Errorf("%w: %q overflows an integer", ErrValidation, s)
			}
			return int(f), nil
		},
		equal: eq[int],
		data:  rangeData(o, [2]float64{0, 100}),
	}, o)
}

// NewFloating declares a float. The default client range is [0,1].
func NewFloating(name string, def float64, opts ...Option) (*Floating, error) {
	o := collect(opts)
	return newValue(TypeFloating, name, def, codec[float64]{
		validate: func(x float64) error {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: %v is not finite", ErrValidation, x)
			}
			return checkRange(x, o.allowedRange)
		},
		encode: func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) },
		decode: func(s string) (float64, error) {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q is not a number", ErrValidation, s)
			}
			return f, nil
		},
		equal: eq[float64],
		data:  rangeData(o, [2]float64{0, 1}),
	}, o)
}

// NewOption declares a choice among a fixed ordered set of strings.
func NewOption(name, def string, choices []string, opts ...Option) (*Choice, error) {
	o := collect(opts)
	choices = append([]string(nil), choices...)
	return newValue(TypeOption, name, def, codec[string]{
		validate: func(s string) error {
			for _, c := range choices {
				if c == s {
					return nil
				}
			}
			return fmt.Errorf("%w: %q is not one of %v", ErrValidation, s, choices)
		},
		encode: func(s string) string { return s },
		decode: func(s string) (string, error) { return s, nil },
		equal:  eq[string],
		data:   func() map[string]any { return map[string]any{"options": append([]string(nil), choices...)} },
	}, o)
}

// NewString declares a free-form string.
func NewString(name, def string, opts ...Option) (*String, error) {
	o := collect(opts)
	return newValue(TypeString, name, def, codec[string]{
		validate: func(string) error { return nil },
		encode:   func(s string) string { return s },
		decode:   func(s string) (string, error) { return s, nil },
		equal:    eq[string],
	}, o)
}

type sequenceDoc struct {
	Colors       []uint32 `json:"colors"`
	Interpolator string   `json:"interpolator"`
}

// EncodeSequence renders the {colors, interpolator} document.
func EncodeSequence(s palette.Sequence) string {
	doc := sequenceDoc{Colors: make([]uint32, len(s.Colors)), Interpolator: string(s.Interpolator)}
	for i, c := range s.Colors {
		doc.Colors[i] = uint32(c)
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

// DecodeSequence parses the {colors, interpolator} document. A missing
// interpolator means continuous circular; an unknown one is rejected.
func DecodeSequence(s string) (palette.Sequence, error) {
	var doc sequenceDoc
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return palette.Sequence{}, fmt.Errorf("%w: color sequence: %v", ErrValidation, err)
	}
	interp := palette.ContinuousCircular
	if doc.Interpolator != "" {
		i, err := palette.ParseInterpolator(doc.Interpolator)
		if err != nil {
			return palette.Sequence{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		interp = i
	}
	seq := palette.Sequence{Colors: make([]palette.Color, len(doc.Colors)), Interpolator: interp}
	for i, c := range doc.Colors {
		seq.Colors[i] = palette.Color(c)
	}
	return seq, nil
}

// NewColorSequence declares a palette valued variable.
func NewColorSequence(name string, def palette.Sequence, opts ...Option) (*ColorSequence, error) {
	o := collect(opts)
	return newValue(TypeColorSequence, name, def, codec[palette.Sequence]{
		validate: func(s palette.Sequence) error {
			if err := s.Validate(); err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
			return nil
		},
		encode: EncodeSequence,
		decode: DecodeSequence,
		equal:  func(a, b palette.Sequence) bool { return a.Equal(b) },
	}, o)
}
