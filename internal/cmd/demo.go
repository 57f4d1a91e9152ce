package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

func newDemoCommand(a *app) *cobra.Command {
	var (
		consumers int
		count     int
		pause     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run one publisher and several subscribers in this process",
		Long: "demo publishes --count messages and runs --consumers subscribers, each with its own " +
			"position, against any backend including memory. Subscribers start from the oldest " +
			"retained record, so a reused persistent queue may deliver older messages first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 0 {
				return ErrInvalidCount
			}
			if consumers <= 0 {
				return ErrInvalidConsumers
			}
			ctx := cmd.Context()

			b, err := openBackend(ctx, a.cfg, a.log, true)
			if err != nil {
				return err
			}
			defer b.Close(context.WithoutCancel(ctx))

			return a.runDemo(ctx, cmd.OutOrStdout(), b, consumers, count, pause)
		},
	}

	cmd.Flags().IntVar(&consumers, "consumers", 3, "number of subscribers")
	cmd.Flags().IntVar(&count, "count", 1000, "messages to publish (0 = until interrupted)")
	cmd.Flags().DurationVar(&pause, "interval", 0, "pause between messages")
	return cmd
}

func (a *app) runDemo(ctx context.Context, out io.Writer, b *backend, consumers, count int, pause time.Duration) error {
	publisher, err := a.newQueue(ctx, b)
	if err != nil {
		return err
	}
	subscribers := make([]*exampleQueue, consumers)
	for i := range subscribers {
		subscribers[i], err = a.newQueue(ctx, b, tailqueue.WithConsumerID(uuid.NewString()))
		if err != nil {
			return err
		}
	}

	w := &syncWriter{w: out}
	sent := startReporter(ctx, a, w, "Sent", totalSent(publisher))
	received := startReporter(ctx, a, w, "Received", totalReceived(subscribers...))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return publish(gctx, publisher, count, pause)
	})
	for _, q := range subscribers {
		g.Go(func() error {
			defer q.Close(context.WithoutCancel(gctx))
			return consume(gctx, q, count)
		})
	}
	err = g.Wait()

	sent.Stop()
	received.Stop()

	for _, q := range subscribers {
		s := q.Stats()
		fmt.Fprintf(w, "%s: received=%d skipped=%d cursor_opens=%d empty_retries=%d reinits=%d checkpoint_failures=%d position=%s\n",
			q.PositionKey(), s.Received, s.Skipped, s.CursorOpens, s.EmptyRetries, s.Reinits, s.CheckpointFailures, s.Position)
	}
	return err
}
