package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookmart/nestable-sdk-go/pkg/queryapi"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(state *app) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			seeded, err := state.seed(ctx, state.config.JournalPath, seed)
			if err != nil {
				return err
			}
			defer seeded.Close()

			options := queryapi.Options{Logger: &state.logger}
			if seeded.journal != nil {
				options.Journal = seeded.journal
			}

			listener, err := net.Listen("tcp", state.config.Listen)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", state.config.Listen, err)
			}
			server := &http.Server{
				Handler:           queryapi.NewServer(seeded.directory, options),
				ReadHeaderTimeout: 10 * time.Second,
			}

			served := make(chan error, 1)
			go func() {
				served <- server.Serve(listener)
			}()
			state.logger.Info().
				Str("addr", listener.Addr().String()).
				Strs("registries", registryNames(seeded)).
				Msg("query API listening")

			select {
			case err := <-served:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutting down: %w", err)
			}
			state.logger.Info().Msg("query API stopped")
			return nil
		},
	}

	cmd.Flags().String("listen", "", "listen address (default from config)")
	cmd.Flags().String("journal", "", "SQLite event journal (default from config)")
	cmd.Flags().BoolVar(&seed, "seed", true, "play the walkthrough before serving")
	_ = state.viper.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = state.viper.BindPFlag("journal_path", cmd.Flags().Lookup("journal"))
	return cmd
}

func registryNames(seeded *world) []string {
	ids := seeded.directory.Registries()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, string(id))
	}
	return names
}
