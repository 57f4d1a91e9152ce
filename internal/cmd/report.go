package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// report prints "<verb> N (total M)" every interval, N being the increase
// since the previous line. It prints a final line when ctx is done.
func report(ctx context.Context, w io.Writer, interval time.Duration, verb string, total func() int64) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var prev int64
	emit := func() {
		cur := total()
		fmt.Fprintf(w, "%s %d (total %d)\n", verb, cur-prev, cur)
		prev = cur
	}

	for {
		select {
		case <-ctx.Done():
			emit()
			return
		case <-ticker.C:
			emit()
		}
	}
}

// syncWriter serializes writes from concurrent reporters.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
