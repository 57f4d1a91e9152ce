package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/tailqueue/core/config"
	"github.com/dmitrymomot/tailqueue/core/logger"
)

// app carries state shared by the subcommands.
type app struct {
	cfg Config
	log *slog.Logger
}

// Execute runs the tailq command line with the given arguments.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the tailq command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	if err := config.Load(&a.cfg); err != nil {
		// Fall back to defaults; flags can still fix what the environment got wrong.
		a.cfg = defaultConfig()
	}

	root := &cobra.Command{
		Use:           "tailq",
		Short:         "Broadcast queue on a bounded log",
		Long:          "tailq publishes and consumes messages through a tailqueue backed by MongoDB, Redis or Pebble.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(a.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.log = log
			logger.SetAsDefault(log)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.Backend, "backend", a.cfg.Backend, "log backend: mongo, redis, pebble or memory (demo only)")
	flags.StringVar(&a.cfg.Queue, "queue", a.cfg.Queue, "queue (log) name")
	flags.StringVar(&a.cfg.Positions, "positions", a.cfg.Positions, "keep positions in another store: pg")
	flags.StringVar(&a.cfg.DataDir, "data-dir", a.cfg.DataDir, "pebble data directory")
	flags.StringVar(&a.cfg.MongoDatabase, "mongo-database", a.cfg.MongoDatabase, "MongoDB database name")
	flags.BoolVar(&a.cfg.MongoUnackedCheckpoints, "mongo-unacked-checkpoints", a.cfg.MongoUnackedCheckpoints, "write MongoDB checkpoints with w:0")
	flags.DurationVar(&a.cfg.ReportInterval, "report-interval", a.cfg.ReportInterval, "how often to print counters")
	flags.StringVar(&a.cfg.Env, "env", a.cfg.Env, "logging preset: development, staging or production")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level: debug, info, warn, error (overrides --env)")
	flags.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "log format: text or json (overrides --env)")

	root.AddCommand(
		newPublishCommand(a),
		newSubscribeCommand(a),
		newDemoCommand(a),
		newMigrateCommand(a),
	)
	return root
}

// newLogger starts from the --env preset and applies explicit level and
// format settings on top of it.
func newLogger(cfg Config, w io.Writer) (*slog.Logger, error) {
	const service = "tailq"

	opts := []logger.Option{logger.WithOutput(w)}
	switch cfg.Env {
	case "":
		opts = append(opts, logger.WithAttr(slog.String("service", service)))
	case "development":
		opts = append(opts, logger.WithDevelopment(service))
	case "staging":
		opts = append(opts, logger.WithStaging(service))
	case "production":
		opts = append(opts, logger.WithProduction(service))
	default:
		return nil, fmt.Errorf("unknown env %q", cfg.Env)
	}

	if cfg.LogLevel != "" {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithLevel(level))
	}

	switch cfg.LogFormat {
	case "":
	case "text":
		opts = append(opts, logger.WithTextFormatter())
	case "json":
		opts = append(opts, logger.WithJSONFormatter())
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return logger.New(opts...), nil
}
