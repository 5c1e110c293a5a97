package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookmart/nestable-sdk-go/pkg/journal"
	"github.com/bookmart/nestable-sdk-go/pkg/journey"
	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
	"github.com/bookmart/nestable-sdk-go/pkg/relay"
)

// app is the state shared by every subcommand once the config is loaded.
type app struct {
	viper      *viper.Viper
	configFile string
	config     Config
	logger     zerolog.Logger
	tracer     trace.Tracer
	shutdown   func(context.Context) error
}

func newRootCommand() *cobra.Command {
	state := &app{viper: viper.New()}

	root := &cobra.Command{
		Use:          "nestctl",
		Short:        "Run and inspect nestable token registries",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.load(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if state.shutdown == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return state.shutdown(ctx)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&state.configFile, "config", "c", "", "config file (default ~/.config/nestctl/config.yaml)")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.Bool("trace", false, "export spans to stderr")
	_ = state.viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = state.viper.BindPFlag("trace", flags.Lookup("trace"))

	root.AddCommand(
		newJourneyCommand(state),
		newServeCommand(state),
		newOwnerCommand(state),
		newCheckpointCommand(state),
		newConfigCommand(state),
	)
	return root
}

func (state *app) load(stderr io.Writer) error {
	config, err := loadConfig(state.viper, state.configFile)
	if err != nil {
		return err
	}
	state.config = config

	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", config.LogLevel, err)
	}
	state.logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	if config.Trace {
		tracer, shutdown, err := newTracer(stderr)
		if err != nil {
			return err
		}
		state.tracer = tracer
		state.shutdown = shutdown
	}
	return nil
}

// world is a directory seeded by the walkthrough together with the sinks
// attached to it.
type world struct {
	directory *nestable.Directory
	journal   *journal.Journal
	report    journey.Report
}

func (w *world) Close() error {
	if w.journal == nil {
		return nil
	}
	return w.journal.Close()
}

// seed builds a directory, attaches the configured sinks, and plays the
// walkthrough when play is set.
func (state *app) seed(ctx context.Context, journalPath string, play bool) (*world, error) {
	directory := nestable.NewDirectory(nestable.DirectoryOptions{
		Logger: &state.logger,
		Tracer: state.tracer,
	})
	result := &world{directory: directory}

	if journalPath != "" {
		opened, err := journal.Open(journalPath, state.logger)
		if err != nil {
			return nil, err
		}
		result.journal = opened
		directory.AddSink(opened)
	}

	if state.config.Relay.URL != "" {
		sink, err := relay.NewSocketIOSink(relay.Config{
			URL:    state.config.Relay.URL,
			APIKey: state.config.Relay.APIKey,
			Logger: &state.logger,
		})
		if err != nil {
			_ = result.Close()
			return nil, err
		}
		directory.AddSink(sink)
	}

	if !play {
		return result, nil
	}
	report, err := journey.Run(ctx, directory, state.config.Journey, state.logger)
	if err != nil {
		_ = result.Close()
		return nil, err
	}
	result.report = report
	return result, nil
}
