package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newPublishCommand(a *app) *cobra.Command {
	var (
		count int
		pause time.Duration
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Send ExampleMessage values until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 0 {
				return ErrInvalidCount
			}
			ctx := cmd.Context()

			b, err := openBackend(ctx, a.cfg, a.log, false)
			if err != nil {
				return err
			}
			defer b.Close(context.WithoutCancel(ctx))

			q, err := a.newQueue(ctx, b)
			if err != nil {
				return err
			}

			r := startReporter(ctx, a, cmd.OutOrStdout(), "Sent", totalSent(q))
			defer r.Stop()

			return publish(ctx, q, count, pause)
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "stop after this many messages (0 = until interrupted)")
	cmd.Flags().DurationVar(&pause, "interval", 0, "pause between messages")
	return cmd
}
