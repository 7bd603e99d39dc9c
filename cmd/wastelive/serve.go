package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"wastelive/internal/idempotency"
	"wastelive/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the marketplace over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.shutdown()

			store, closeStore, err := idempotency.Open(ctx, a.cfg.Service.PostgresDSN, a.cfg.Service.IdempotencyStorePath)
			if err != nil {
				return fmt.Errorf("idempotency store: %w", err)
			}
			defer closeStore()

			apiServer := server.NewServer(a.cfg, server.Deps{
				Market:  a.market,
				Board:   a.board,
				Store:   store,
				Chain:   a.chain,
				Metrics: a.metrics,
				Logger:  a.log,
			})

			return a.run(ctx, func(ctx context.Context) error {
				errc := make(chan error, 1)
				go func() { errc <- apiServer.Start() }()

				select {
				case err := <-errc:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return fmt.Errorf("http server: %w", err)
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := apiServer.Shutdown(shutdownCtx); err != nil {
					a.log.Warn().Err(err).Msg("http shutdown")
				}
				return nil
			})
		},
	}
}
