package led

import (
	"fmt"
	"strings"

	"github.com/coreman2200/hidden-shades/internal/render"
)

// Layout maps the raster canvas onto strip order. With Serpentine set
// every odd row runs right to left.
type Layout struct {
	Dim        render.Dimensions
	Serpentine bool
}

// Index maps x,y to the strip position.
func (l Layout) Index(x, y int) int {
	if l.Serpentine && y%2 == 1 {
		x = l.Dim.X - 1 - x
	}
	return y*l.Dim.X + x
}

func (l Layout) Count() int { return l.Dim.Pixels() }

// ColorOrder is the byte order a strip expects, e.g. "GRB".
type ColorOrder [3]byte

var RGB = ColorOrder{'R', 'G', 'B'}

// ParseColorOrder accepts any permutation of R, G and B.
func ParseColorOrder(s string) (ColorOrder, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return RGB, nil
	}
	if len(s) != 3 || !strings.ContainsRune(s, 'R') || !strings.ContainsRune(s, 'G') || !strings.ContainsRune(s, 'B') {
		return RGB, fmt.Errorf("led: invalid color order %q", s)
	}
	return ColorOrder{s[0], s[1], s[2]}, nil
}

func (o ColorOrder) String() string { return string(o[:]) }

// Arrange writes the raster frame src into dst in strip and color order.
func (l Layout) Arrange(dst, src []byte, order ColorOrder) []byte {
	n := l.Count()
	if cap(dst) < n*3 {
		dst = make([]byte, n*3)
	}
	dst = dst[:n*3]
	for y := 0; y < l.Dim.Y; y++ {
		for x := 0; x < l.Dim.X; x++ {
			s := (y*l.Dim.X + x) * 3
			d := l.Index(x, y) * 3
			for i, c := range order {
				switch c {
				case 'R':
					dst[d+i] = src[s]
				case 'G':
					dst[d+i] = src[s+1]
				case 'B':
					dst[d+i] = src[s+2]
				}
			}
		}
	}
	return dst
}
