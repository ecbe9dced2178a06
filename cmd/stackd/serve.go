// Task 5.1: serve — run the control plane from a manifest.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
	"github.com/matiasleandrokruk/stackd/internal/server"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(state *cliState) *cobra.Command {
	var (
		manifestPath string
		host         string
		port         int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control plane for a distribution manifest",
		Args:  cobra.NoArgs,
		Example: "  stackd serve --manifest run.yaml\n" +
			"  stackd serve --manifest run.yaml --port 9321",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifestPath
			if path == "" {
				path = state.settings.Manifest
			}
			m, err := manifest.Load(path)
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return fmt.Errorf("manifest %s: %w", path, err)
			}
			// Flag overrides beat the manifest's server block.
			if host != "" {
				m.Server.Host = host
			}
			if port != 0 {
				m.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, state.log, m)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to the distribution manifest (defaults STACKD_MANIFEST or run.yaml)")
	cmd.Flags().StringVar(&host, "host", "", "Listen host override")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port override")
	return cmd
}
