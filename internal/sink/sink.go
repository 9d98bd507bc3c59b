// Package sink implements the output stage: it owns the destination for
// decoded raw characters and framed messages, following the sdrctl staged-
// pipeline output idiom (a stage struct wrapping an io.Writer, with a
// routine that drains a channel until told to stop).
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Stage writes decoded output chunks to an underlying io.Writer. The
// destination is caller-supplied so it can be stdout, a log file, or a test
// buffer.
type Stage struct {
	ctx    context.Context
	cancel context.CancelFunc
	w      io.Writer
}

// NewStage builds a Stage writing to w.
func NewStage(ctx context.Context, w io.Writer) *Stage {
	c, cancel := context.WithCancel(ctx)
	return &Stage{ctx: c, cancel: cancel, w: w}
}

// Stop cancels the stage, causing Routine to exit; chunks still queued on
// its input channel are not written.
func (s *Stage) Stop() {
	s.cancel()
}

// Routine returns a function that writes every chunk received on in to the
// stage's writer until the context is cancelled or in is closed.
func (s *Stage) Routine(wg *sync.WaitGroup, in <-chan []byte) func() {
	return func() {
		defer wg.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case chunk, ok := <-in:
				if !ok {
					return
				}
				if _, err := s.w.Write(chunk); err != nil {
					fmt.Fprintf(os.Stderr, "navtexrx: output write error: %s\n", err)
				}
			}
		}
	}
}
