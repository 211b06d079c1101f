package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/hidden-shades/internal/config"
)

// flags are the command line defaults; a config file overrides them where
// it sets a value.
type flags struct {
	configPath string
	width      int
	height     int
	fps        int
	dataDir    string
	addr       string
	logLevel   string
	driver     string
	artnet     string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "shades",
		Short:         "Layered light show compositor with Art-Net input and output",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zerolog.TimeFieldFormat = time.RFC3339
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	def := config.Default()
	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "config.yaml", "path to config.yaml or config.toml")
	pf.IntVar(&f.width, "width", def.Width, "display width in pixels")
	pf.IntVar(&f.height, "height", def.Height, "display height in pixels")
	pf.IntVar(&f.fps, "fps", def.FPS, "target frames per second")
	pf.StringVar(&f.dataDir, "data", def.DataDir, "directory for persisted state")
	pf.StringVar(&f.addr, "addr", def.Addr, "HTTP listen address")
	pf.StringVar(&f.logLevel, "log-level", def.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&f.driver, "driver", def.LED.Driver, "led driver: sim | spi | screen | none")
	pf.StringVar(&f.artnet, "artnet-listen", "", "Art-Net receive address, e.g. 0.0.0.0:6454")

	root.AddCommand(newServeCmd(f), newInspectCmd(f), newShardsCmd())
	return root
}

// load applies flags over the defaults, then the config file over both.
func (f *flags) load() (*config.Config, error) {
	base := config.Default()
	base.Width, base.Height, base.FPS = f.width, f.height, f.fps
	base.DataDir, base.Addr, base.LogLevel = f.dataDir, f.addr, f.logLevel
	base.LED.Driver = f.driver
	base.Artnet.Listen = f.artnet

	cfg, err := config.Load(f.configPath, base)
	if err != nil {
		log.Warn().Err(err).Str("path", f.configPath).Msg("config load failed; proceeding with flags")
		cfg = base
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}
