package sink

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoutineDrainsChunksInOrder(t *testing.T) {
	var buf bytes.Buffer
	stage := NewStage(context.Background(), &buf)

	in := make(chan []byte, 4)
	var wg sync.WaitGroup
	wg.Add(1)
	go stage.Routine(&wg, in)()

	in <- []byte("ZCZC EA01\r")
	in <- []byte("HELLO WORLD")
	close(in)

	wg.Wait()
	assert.Equal(t, "ZCZC EA01\rHELLO WORLD", buf.String())
}

func TestRoutineExitsOnContextCancel(t *testing.T) {
	var buf bytes.Buffer
	stage := NewStage(context.Background(), &buf)

	in := make(chan []byte)
	var wg sync.WaitGroup
	wg.Add(1)
	go stage.Routine(&wg, in)()

	stage.Stop()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("routine did not exit after Stop")
	}
}
