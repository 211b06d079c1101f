// Package app constructs every long-lived component from the process
// configuration and runs them together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/hidden-shades/internal/api"
	"github.com/coreman2200/hidden-shades/internal/artnet"
	"github.com/coreman2200/hidden-shades/internal/config"
	"github.com/coreman2200/hidden-shades/internal/diagnostics"
	"github.com/coreman2200/hidden-shades/internal/engine"
	"github.com/coreman2200/hidden-shades/internal/globals"
	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/led"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/shards"
	"github.com/coreman2200/hidden-shades/internal/stack"
	"github.com/coreman2200/hidden-shades/internal/store"
)

type Core struct {
	Config   *config.Config
	Store    store.Store
	Globals  *globals.Manager
	Registry *layer.Registry
	Provider *artnet.Provider
	Stacks   *stack.Manager
	Engine   *engine.Engine
	Diag     *diagnostics.Hub
	API      *api.Server
	Driver   string

	closers []io.Closer
}

// OpenStore opens the configured storage backend.
func OpenStore(cfg *config.Config) (store.Store, io.Closer, error) {
	switch cfg.Storage.Backend {
	case "", "fs":
		s, err := store.NewFS(cfg.DataDir)
		return s, nil, err
	case "redis":
		r, err := store.DialRedis(cfg.Storage.RedisAddr, cfg.Storage.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Dim is the display size from cfg.
func Dim(cfg *config.Config) render.Dimensions {
	return render.Dimensions{X: cfg.Width, Y: cfg.Height}
}

// LayerConstructor binds layers to reg. A restored layer whose shard is
// missing is kept unbound so its stored values survive; a new one is
// destroyed and the error returned.
func LayerConstructor(dim render.Dimensions, g layer.PaletteSource, reg *layer.Registry) stack.Constructor {
	return func(id string, s store.Store, init map[string]any) (*layer.Layer, error) {
		l, err := layer.New(layer.Options{ID: id, Store: s, Dim: dim, Globals: g, InitInfo: init})
		if err != nil {
			return nil, err
		}
		if err := l.Bind(reg); err != nil {
			if init == nil {
				log.Warn().Err(err).Str("layer", id).Msg("restored layer left unbound")
				return l, nil
			}
			_ = l.Destroy()
			return nil, err
		}
		return l, nil
	}
}

// Build wires the controller. Nothing runs until Run is called.
func Build(cfg *config.Config) (c *Core, err error) {
	c = &Core{Config: cfg, Diag: diagnostics.NewHub(64)}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	s, closer, err := OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.Store = s
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	if c.Globals, err = globals.New(store.Sub(s, "globals")); err != nil {
		return nil, fmt.Errorf("globals: %w", err)
	}

	if cfg.Artnet.Listen != "" {
		conn, err := net.ListenPacket("udp", cfg.Artnet.Listen)
		if err != nil {
			return nil, fmt.Errorf("artnet listen: %w", err)
		}
		c.closers = append(c.closers, conn)
		c.Provider, err = artnet.NewProvider(conn, store.Sub(s, "artnet"), artnet.ProviderConfig{
			RateLimitHz: cfg.Artnet.RateLimitHz,
			PollTimeout: time.Duration(cfg.Artnet.PollTimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return nil, fmt.Errorf("artnet provider: %w", err)
		}
	}

	c.Registry = layer.NewRegistry()
	shards.Register(c.Registry, shards.Deps{Provider: c.Provider})

	dim := Dim(cfg)
	c.Stacks, err = stack.NewManager(store.Sub(s, "stacks"), LayerConstructor(dim, c.Globals, c.Registry))
	if err != nil {
		return nil, fmt.Errorf("stacks: %w", err)
	}

	c.Engine, err = engine.New(engine.Config{
		Dim: dim,
		FPS: cfg.FPS,
		Power: render.Power{
			WhiteCap: cfg.Power.WhiteCap,
			ChanMA:   cfg.Power.LEDChanMA,
			BudgetMA: cfg.Power.BudgetMA,
			Knee:     cfg.Power.Knee,
		},
	}, c.Stacks, c.Globals)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	c.Engine.OnFault(func(stackID string, f *layer.FaultError) {
		c.Diag.Publish(diagnostics.FromFault(stackID, f))
	})

	if err := c.addOutputs(dim); err != nil {
		return nil, err
	}

	c.API = api.New(api.Options{
		Runner:   c.Engine,
		Stacks:   c.Stacks,
		Globals:  c.Globals,
		Registry: c.Registry,
		Diag:     c.Diag,
		Dim:      dim,
		Driver:   c.Driver,
	})
	c.Engine.OnFrame(c.API.PublishFrame)
	return c, nil
}

func (c *Core) addOutputs(dim render.Dimensions) error {
	cfg := c.Config
	order, err := led.ParseColorOrder(cfg.LED.ColorOrder)
	if err != nil {
		return err
	}
	layout := led.Layout{Dim: dim, Serpentine: cfg.LED.XFlipEveryRow}

	c.Driver = cfg.LED.Driver
	var drv led.Driver
	switch cfg.LED.Driver {
	case "none":
	case "", "sim":
		c.Driver = "sim"
		drv = led.NewSim()
	case "screen":
		drv = led.NewScreen(layout.Count())
	case "spi":
		d, err := led.OpenSPI(led.SPIOptions{Port: cfg.LED.Dev, SpeedHz: cfg.LED.SpeedHz}, layout.Count())
		if err != nil {
			log.Warn().Err(err).
				Str("driver", "spi").
				Str("dev", cfg.LED.Dev).
				Int("speed_hz", cfg.LED.SpeedHz).
				Msg("SPI init failed; falling back to SIM")
			c.Driver = "sim"
			drv = led.NewSim()
		} else {
			drv = d
		}
	default:
		log.Warn().Str("driver", cfg.LED.Driver).Msg("unknown driver; using SIM")
		c.Driver = "sim"
		drv = led.NewSim()
	}
	if drv != nil {
		out := led.NewOutput(c.Driver, drv, layout, order)
		c.closers = append(c.closers, out)
		c.Engine.AddOutput(out)
	}

	for _, o := range cfg.Artnet.Outputs {
		port := o.Port
		if port == 0 {
			port = artnet.DefaultPort
		}
		d, err := artnet.Dial(o.Host, port, uint16(o.StartUniverse), uint8(o.PhysicalPort))
		if err != nil {
			return fmt.Errorf("artnet output %s: %w", o.Host, err)
		}
		log.Info().Str("output", d.String()).Msg("artnet output")
		c.closers = append(c.closers, d)
		c.Engine.AddOutput(d)
	}
	return nil
}

// Run drives the render loop, the Art-Net receiver and the HTTP server
// until ctx is cancelled or one of them fails.
func (c *Core) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Engine.Run(ctx) })
	if c.Provider != nil {
		g.Go(func() error { return c.Provider.Run(ctx) })
	}

	srv := &http.Server{
		Addr:         c.Config.Addr,
		Handler:      c.API.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	g.Go(func() error {
		log.Info().Str("addr", c.Config.Addr).Str("driver", c.Driver).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// Close releases outputs, sockets and the store.
func (c *Core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
