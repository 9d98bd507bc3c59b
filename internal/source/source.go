// Package source implements the sample-source stage: it reads 16-bit
// signed-integer PCM from a file or stdin and pushes normalized float64
// samples into the receive pipeline, following the sdrctl staged-pipeline
// idiom (a stage struct, a context, and a routine that owns its own
// goroutine and channel).
package source

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrShortRead is returned when the input stream ends mid-sample (an odd
// number of bytes remaining).
var ErrShortRead = errors.New("navtexrx: PCM stream ended on an incomplete sample")

// PCM16ToFloat converts a single little-endian 16-bit signed PCM sample to
// the [-1, 1] float64 range expected by the receiver.
func PCM16ToFloat(v int16) float64 {
	return float64(v) / 32767.0
}

// Stage reads PCM samples from an io.Reader and delivers batches of float64
// samples on a channel until the reader is exhausted or the context is
// cancelled.
type Stage struct {
	ctx    context.Context
	cancel context.CancelFunc
	r      io.Reader

	// chunkSamples bounds how many samples are read and pushed per batch.
	chunkSamples int
}

// NewStage builds a Stage reading from r. chunkSamples <= 0 falls back to a
// one-second batch size at the given sample rate.
func NewStage(ctx context.Context, r io.Reader, sampleRate, chunkSamples int) *Stage {
	c, cancel := context.WithCancel(ctx)
	if chunkSamples <= 0 {
		chunkSamples = sampleRate
	}
	return &Stage{ctx: c, cancel: cancel, r: r, chunkSamples: chunkSamples}
}

// Stop cancels the stage's context, causing routine to exit at its next
// read boundary.
func (s *Stage) Stop() {
	s.cancel()
}

// Routine returns a function that reads PCM samples and pushes them onto
// toReceiver until EOF, cancellation, or a read error, closing toReceiver on
// exit. errCh receives at most one non-nil error (nil on clean EOF).
func (s *Stage) Routine(wg *sync.WaitGroup, toReceiver chan []float64, errCh chan<- error) func() {
	return func() {
		defer wg.Done()
		defer close(toReceiver)

		raw := make([]byte, s.chunkSamples*2)
		for {
			select {
			case <-s.ctx.Done():
				errCh <- nil
				return
			default:
			}

			n, err := io.ReadFull(s.r, raw)
			odd := n%2 != 0
			if odd {
				n--
			}
			if n > 0 {
				samples := make([]float64, n/2)
				for i := range samples {
					v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
					samples[i] = PCM16ToFloat(v)
				}
				select {
				case toReceiver <- samples:
				case <-s.ctx.Done():
					errCh <- nil
					return
				}
			}

			switch {
			case err == nil:
				continue
			case odd && (err == io.EOF || err == io.ErrUnexpectedEOF):
				errCh <- ErrShortRead
				return
			case err == io.EOF, err == io.ErrUnexpectedEOF:
				errCh <- nil
				return
			default:
				errCh <- fmt.Errorf("navtexrx: reading PCM samples: %w", err)
				return
			}
		}
	}
}

// OpenInput opens path for reading, treating "-" as stdin, matching the
// original CLI's `[path|-]` convention.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
