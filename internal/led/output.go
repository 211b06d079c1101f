package led

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Output adapts a Driver to the render scheduler: frames arrive in raster
// RGB and leave in strip order.
type Output struct {
	mu     sync.Mutex
	name   string
	driver Driver
	layout Layout
	order  ColorOrder
	buf    []byte
	errs   uint64
	logger zerolog.Logger
}

func NewOutput(name string, d Driver, l Layout, order ColorOrder) *Output {
	return &Output{
		name:   name,
		driver: d,
		layout: l,
		order:  order,
		logger: log.With().Str("output", name).Logger().Sample(&zerolog.BurstSampler{Burst: 3, Period: 10 * time.Second}),
	}
}

func (o *Output) Push(rgb []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(rgb) < o.layout.Count()*3 {
		o.errs++
		o.logger.Warn().Int("len", len(rgb)).Msg("short frame")
		return
	}
	o.buf = o.layout.Arrange(o.buf, rgb, o.order)
	if err := o.driver.Write(o.buf); err != nil {
		o.errs++
		o.logger.Error().Err(err).Uint64("errors", o.errs).Msg("led write failed")
	}
}

// Errors counts failed pushes.
func (o *Output) Errors() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errs
}

func (o *Output) Name() string { return o.name }

func (o *Output) Close() error { return o.driver.Close() }
