package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/hidden-shades/internal/app"
)

func newServeCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the renderer, Art-Net endpoints and control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			core, err := app.Build(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := core.Close(); err != nil {
					log.Warn().Err(err).Msg("shutdown")
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log.Info().
				Int("width", cfg.Width).
				Int("height", cfg.Height).
				Int("fps", cfg.FPS).
				Str("storage", cfg.Storage.Backend).
				Msg("starting")
			err = core.Run(ctx)
			log.Info().Msg("shutting down")
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
