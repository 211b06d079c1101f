package led

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// DrawerDriver writes frames through a periph display.Drawer as a single
// row image.
type DrawerDriver struct {
	mu     sync.Mutex
	drawer display.Drawer
	closer func() error
	img    *image.NRGBA
}

// NewDrawerDriver wraps d. closer, if not nil, runs after the drawer halts.
func NewDrawerDriver(d display.Drawer, count int, closer func() error) *DrawerDriver {
	return &DrawerDriver{
		drawer: d,
		closer: closer,
		img:    image.NewNRGBA(image.Rect(0, 0, count, 1)),
	}
}

func (d *DrawerDriver) Write(rgb []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drawer == nil {
		return errors.New("led: driver closed")
	}
	n := d.img.Rect.Dx()
	if len(rgb) != n*3 {
		return fmt.Errorf("led: rgb length %d does not match count %d", len(rgb), n)
	}
	for i := 0; i < n; i++ {
		d.img.SetNRGBA(i, 0, color.NRGBA{R: rgb[i*3], G: rgb[i*3+1], B: rgb[i*3+2], A: 0xFF})
	}
	return d.drawer.Draw(d.drawer.Bounds(), d.img, image.Point{})
}

func (d *DrawerDriver) String() string { return d.drawer.String() }

func (d *DrawerDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drawer == nil {
		return nil
	}
	err := d.drawer.Halt()
	d.drawer = nil
	if d.closer != nil {
		err = errors.Join(err, d.closer())
	}
	return err
}

// SPIOptions select and clock the SPI port driving an NRZ strip.
type SPIOptions struct {
	Port    string
	SpeedHz int
}

// NewNRZ drives count WS281x pixels over an SPI port.
func NewNRZ(port spi.Port, count int, speedHz int) (*DrawerDriver, error) {
	if count <= 0 {
		return nil, fmt.Errorf("led: invalid LED count %d", count)
	}
	if speedHz <= 0 {
		speedHz = 2_500_000
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      physic.Frequency(speedHz) * physic.Hertz,
	})
	if err != nil {
		return nil, fmt.Errorf("led: nrzled: %w", err)
	}
	return NewDrawerDriver(dev, count, nil), nil
}

// OpenSPI initializes the host and opens the named SPI port ("" picks the
// first one).
func OpenSPI(opts SPIOptions, count int) (*DrawerDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("led: host init: %w", err)
	}
	pc, err := spireg.Open(opts.Port)
	if err != nil {
		return nil, fmt.Errorf("led: open spi %q: %w", opts.Port, err)
	}
	d, err := NewNRZ(pc, count, opts.SpeedHz)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	d.closer = pc.Close
	return d, nil
}

// NewScreen prints frames to the terminal with ANSI colors.
func NewScreen(count int) *DrawerDriver {
	return NewDrawerDriver(screen.New(count), count, nil)
}
