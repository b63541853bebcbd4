package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/shpitdev/entity-search-enricher/internal/config"
	"github.com/shpitdev/entity-search-enricher/internal/server"
	"github.com/shpitdev/entity-search-enricher/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend and dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, svc, err := setup(ctx, v)
			if err != nil {
				return err
			}

			srv := server.NewHTTPServer(cfg.ListenAddr, server.New(svc, log).Handler())
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info().
					Str("addr", cfg.ListenAddr).
					Str("provider", svc.Provider).
					Str("model", svc.Model).
					Str("version", version.Current).
					Msg("listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				log.Info().Msg("shutting down")
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().String("listen-addr", ":8080", "address to listen on (also LISTEN_ADDR)")
	bindFlag(v, config.KeyListenAddr, cmd.Flags().Lookup("listen-addr"))
	return cmd
}
