package cmd

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tailqueue/core/config"
	"github.com/dmitrymomot/tailqueue/core/health"
	"github.com/dmitrymomot/tailqueue/core/logger"
	"github.com/dmitrymomot/tailqueue/core/server"
	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

func newSubscribeCommand(a *app) *cobra.Command {
	var (
		count      int
		consumerID string
		ephemeral  bool
	)

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Receive ExampleMessage values until interrupted",
		Long: "subscribe tails the queue and checkpoints after every message. Without --consumer " +
			"all subscribers share the position keyed by the queue name; --ephemeral picks a fresh id.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 0 {
				return ErrInvalidCount
			}
			if ephemeral {
				consumerID = uuid.NewString()
			}
			ctx := cmd.Context()

			b, err := openBackend(ctx, a.cfg, a.log, false)
			if err != nil {
				return err
			}
			defer b.Close(context.WithoutCancel(ctx))

			var opts []tailqueue.Option
			if consumerID != "" {
				opts = append(opts, tailqueue.WithConsumerID(consumerID))
			}
			q, err := a.newQueue(ctx, b, opts...)
			if err != nil {
				return err
			}
			a.log.InfoContext(ctx, "subscribed",
				logger.Queue(q.Name()),
				logger.Consumer(q.PositionKey()),
				logger.Position(q.Position()))

			r := startReporter(ctx, a, cmd.OutOrStdout(), "Received", totalReceived(q))
			defer r.Stop()

			g, gctx := errgroup.WithContext(ctx)
			runCtx, stop := context.WithCancel(gctx)
			defer stop()

			if a.cfg.HealthAddr != "" {
				srv, err := newHealthServer(a)
				if err != nil {
					return err
				}
				g.Go(srv.Run(runCtx, health.NewMux(a.log, b.checks...)))
			}
			g.Go(func() error {
				defer stop()
				return consume(runCtx, q, count)
			})

			err = g.Wait()
			_ = q.Close(context.WithoutCancel(ctx))
			return err
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "stop after this many messages (0 = until interrupted)")
	cmd.Flags().StringVar(&consumerID, "consumer", "", "consumer id; gives this subscriber its own position")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "use a random consumer id")
	cmd.Flags().StringVar(&a.cfg.HealthAddr, "health-addr", a.cfg.HealthAddr, "serve /health/live and /health/ready on this address")
	return cmd
}

func newHealthServer(a *app) (*server.Server, error) {
	var cfg server.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	cfg.Addr = a.cfg.HealthAddr
	return server.NewFromConfig(cfg, server.WithLogger(a.log))
}
