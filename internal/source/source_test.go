package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCM16ToFloatRange(t *testing.T) {
	assert.InDelta(t, 1.0, PCM16ToFloat(32767), 1e-9)
	assert.InDelta(t, 0.0, PCM16ToFloat(0), 1e-9)
	assert.InDelta(t, -1.0, PCM16ToFloat(-32767), 1e-9)
}

func encodePCM(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestRoutineDeliversAllSamplesThenCleanEOF(t *testing.T) {
	data := encodePCM(0, 16383, -16384, 32767)
	r := bytes.NewReader(data)

	stage := NewStage(context.Background(), r, 8000, 2)
	toReceiver := make(chan []float64, 8)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go stage.Routine(&wg, toReceiver, errCh)()

	var got []float64
	for batch := range toReceiver {
		got = append(got, batch...)
	}

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for source stage to report completion")
	}

	require.Len(t, got, 4)
	assert.InDelta(t, 0.0, got[0], 1e-9)
	assert.InDelta(t, 32767.0/32767.0, got[3], 1e-9)
}

func TestRoutineReportsErrShortReadOnTrailingOddByte(t *testing.T) {
	data := append(encodePCM(0, 16383), 0x7f) // one dangling byte, no matching sample
	r := bytes.NewReader(data)

	stage := NewStage(context.Background(), r, 8000, 2)
	toReceiver := make(chan []float64, 8)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go stage.Routine(&wg, toReceiver, errCh)()

	var got []float64
	for batch := range toReceiver {
		got = append(got, batch...)
	}

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrShortRead)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for source stage to report completion")
	}

	require.Len(t, got, 2, "the two complete samples before the dangling byte are still delivered")
}

func TestRoutineStopsOnContextCancel(t *testing.T) {
	// The stream still holds samples, but cancelling before the stage ever
	// reads from it must make Routine return promptly with a nil error.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stage := NewStage(ctx, bytes.NewReader(encodePCM(0, 1, 2, 3)), 8000, 4)
	toReceiver := make(chan []float64, 1)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go stage.Routine(&wg, toReceiver, errCh)()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stage did not exit after context cancellation")
	}
}
