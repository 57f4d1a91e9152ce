package cmd

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/tailqueue/core/config"
	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

type exampleQueue = tailqueue.Queue[ExampleMessage]

// newQueue binds an ExampleMessage queue to b. TAILQUEUE_* settings apply
// first, then opts.
func (a *app) newQueue(ctx context.Context, b *backend, opts ...tailqueue.Option) (*exampleQueue, error) {
	var qcfg tailqueue.Config
	if err := config.Load(&qcfg); err != nil {
		return nil, err
	}
	base := []tailqueue.Option{
		tailqueue.WithName(a.cfg.Queue),
		tailqueue.WithLogger(a.log),
	}
	return tailqueue.NewFromConfig[ExampleMessage](ctx, qcfg, b.logs, b.positions, append(base, opts...)...)
}

// publish sends numbered messages until count is reached (0 means forever)
// or ctx is done. Cancellation is a normal stop.
func publish(ctx context.Context, q *exampleQueue, count int, pause time.Duration) error {
	for n := 1; count == 0 || n <= count; n++ {
		msg := ExampleMessage{Number: n, Name: fmt.Sprintf("message-%d", n)}
		if err := q.Send(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if pause > 0 {
			t := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// consume receives until count messages arrived (0 means forever) or ctx is
// done. Cancellation is a normal stop.
func consume(ctx context.Context, q *exampleQueue, count int) error {
	for n := 0; count == 0 || n < count; n++ {
		if _, err := q.Receive(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

func totalSent(qs ...*exampleQueue) func() int64 {
	return func() int64 {
		var n int64
		for _, q := range qs {
			n += q.Stats().Sent
		}
		return n
	}
}

func totalReceived(qs ...*exampleQueue) func() int64 {
	return func() int64 {
		var n int64
		for _, q := range qs {
			n += q.Stats().Received
		}
		return n
	}
}

// reporter runs report in the background until stopped.
type reporter struct {
	cancel  context.CancelFunc
	done    chan struct{}
	stopped atomic.Bool
}

func startReporter(ctx context.Context, a *app, w io.Writer, verb string, total func() int64) *reporter {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &reporter{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		report(ctx, w, a.cfg.ReportInterval, verb, total)
	}()
	return r
}

// Stop prints the final line and waits for the reporter to exit.
func (r *reporter) Stop() {
	if r.stopped.Swap(true) {
		return
	}
	r.cancel()
	<-r.done
}
