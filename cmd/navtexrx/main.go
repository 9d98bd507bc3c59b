// navtexrx decodes NAVTEX/SITOR-B FSK audio from a file or stdin, writing
// decoded messages to stdout or a file.
//
// Usage:
//
//	navtexrx [-c config.ini] [-only-sitor-b] [-reverse] [sample_rate] [path|-]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"

	"github.com/f4ecw/navtexrx/internal/config"
	"github.com/f4ecw/navtexrx/internal/navtex"
	"github.com/f4ecw/navtexrx/internal/sink"
	"github.com/f4ecw/navtexrx/internal/source"
)

func main() {
	var (
		cliCfgFile = flag.String("c", "", "configuration file to load parameters from")
		onlySitorB = flag.Bool("only-sitor-b", false, "output raw SITOR-B characters without message framing")
		reverse    = flag.Bool("reverse", false, "swap mark/space tone assignment")
		outPath    = flag.String("o", "-", "output path, or - for stdout")
	)
	flag.Parse()

	cfg, err := config.Load(config.FileFromEnv(*cliCfgFile))
	handleErr("unable to read configuration: %s\n", err)

	if flag.NArg() > 0 {
		rate, err := strconv.Atoi(flag.Arg(0))
		handleErr("invalid sample_rate argument: %s\n", err)
		cfg.Receiver.SampleRate = rate
	}
	if flag.NArg() > 1 {
		cfg.IO.InputPath = flag.Arg(1)
	}
	cfg.Receiver.OnlySitorB = cfg.Receiver.OnlySitorB || *onlySitorB
	cfg.Receiver.Reverse = cfg.Receiver.Reverse || *reverse
	if *outPath != "-" {
		cfg.IO.OutputPath = *outPath
	}

	in, err := source.OpenInput(cfg.IO.InputPath)
	handleErr("unable to open input: %s\n", err)
	defer in.Close()

	out, err := openOutput(cfg.IO.OutputPath)
	handleErr("unable to open output: %s\n", err)
	defer out.Close()

	logger := navtex.NewLogger(os.Stderr, levelFromString(cfg.Receiver.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	handleSignal(os.Interrupt, cancel)

	outChunks := make(chan []byte, 16)
	sinkStage := sink.NewStage(ctx, out)

	var wg sync.WaitGroup
	wg.Add(1)
	go sinkStage.Routine(&wg, outChunks)()

	receiver, err := navtex.NewReceiver(chanWriter{outChunks}, cfg.Receiver.SampleRate, cfg.Receiver.OnlySitorB, cfg.Receiver.Reverse, logger)
	handleErr("unable to initialise receiver: %s\n", err)

	sourceStage := source.NewStage(ctx, in, cfg.Receiver.SampleRate, 0)
	samples := make(chan []float64, 4)
	errCh := make(chan error, 1)

	wg.Add(1)
	go sourceStage.Routine(&wg, samples, errCh)()

	for batch := range samples {
		if err := receiver.ProcessData(batch); err != nil {
			cancel()
			handleErr("decode error: %s\n", err)
		}
	}

	close(outChunks)
	wg.Wait()

	if err := <-errCh; err != nil {
		handleErr("input stream error: %s\n", err)
	}
}

// chanWriter adapts a []byte channel to io.Writer so the receiver's
// synchronous output can be handed off to the sink stage's own goroutine
// without the decode loop blocking on I/O.
type chanWriter struct{ ch chan<- []byte }

func (c chanWriter) Write(p []byte) (int, error) {
	b := make([]byte, len(p))
	copy(b, p)
	c.ch <- b
	return len(p), nil
}

// openOutput opens path for writing, treating "-" as stdout, matching
// source.OpenInput's convention for the input side.
func openOutput(path string) (*os.File, error) {
	if path == "" || path == "-" {
		return os.Stdout, nil
	}
	return os.Create(path)
}

func levelFromString(s string) navtex.Level {
	switch s {
	case "DEBUG":
		return navtex.LevelDebug
	case "INFO":
		return navtex.LevelInfo
	default:
		return navtex.LevelWarn
	}
}

func handleErr(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, msg, err)
		os.Exit(1)
	}
}

func handleSignal(sig os.Signal, handleFn func()) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, sig)

	go func() {
		<-signalChan
		fmt.Fprintln(os.Stderr, "\nreceived an interrupt, shutting down...")
		handleFn()
	}()
}
