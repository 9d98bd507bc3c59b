// Package navtex implements the NAVTEX/SITOR-B receive chain: quadrature
// downconversion, envelope/noise tracking, an automatic-threshold
// discriminator, a multicorrelator bit synchronizer, a CCIR-476 character
// synchronizer, FEC decoding, and message framing.
//
// The receiver is strictly single-threaded and synchronous: ProcessData is
// the only entry point, and it runs to completion before the caller may push
// more samples. There are no goroutines, timers, or suspension points inside
// this package.
package navtex

import (
	"errors"
	"io"
	"math"
	"math/cmplx"
	"os"

	"github.com/f4ecw/navtexrx/internal/ccir476"
	"github.com/f4ecw/navtexrx/internal/dsp"
)

// State is the receiver's character-synchronization state.
type State int

const (
	SyncSetup State = iota
	Sync
	ReadData
)

func (s State) String() string {
	switch s {
	case SyncSetup:
		return "SYNC_SETUP"
	case Sync:
		return "SYNC"
	case ReadData:
		return "READ_DATA"
	default:
		return "UNKNOWN"
	}
}

const (
	centerFrequency = 1000.0 // Hz
	deviation       = 85.0   // Hz
	baudRate        = 100.0
	filterLen       = 512
	bitBufferBits   = int(baudRate) // one second's worth of bits
)

// ErrInvalidSampleRate is returned by NewReceiver when the requested sample
// rate cannot support 100-baud FSK decoding.
var ErrInvalidSampleRate = errors.New("navtex: sample rate must be >= 1000")

// Receiver owns all DSP and protocol state for one NAVTEX/SITOR-B channel.
// It is not safe for concurrent use: process_data-equivalent calls
// (ProcessData) must be serialized by the caller.
type Receiver struct {
	sampleRate float64
	onlySitorB bool
	reverse    bool
	out        io.Writer
	logger     *Logger

	baudRate       float64
	bitSampleCount float64 // B = sampleRate / baudRate, kept fractional

	markMixer  *dsp.Mixer
	spaceMixer *dsp.Mixer
	markLPF    *dsp.LowpassFilter
	spaceLPF   *dsp.LowpassFilter

	timeSec     float64
	sampleCount int

	markEnv, markNoise   float64
	spaceEnv, spaceNoise float64

	earlyAcc, promptAcc, lateAcc float64

	nextEarly, nextPrompt, nextLate float64
	avgEarly, avgPrompt, avgLate    float64

	averagedMarkState int

	state      State
	errorCount int
	shift      bool
	alphaPhase bool

	bitValues []int
	bitCursor int

	codec    *ccir476.Codec
	lastChar int

	framer *Framer
}

// NewReceiver builds a Receiver decoding into out. logger may be nil, in
// which case a warn-level logger writing to stderr is used, matching the
// original's default log_level = WARN.
func NewReceiver(out io.Writer, sampleRate int, onlySitorB, reverse bool, logger *Logger) (*Receiver, error) {
	if sampleRate < 1000 {
		return nil, ErrInvalidSampleRate
	}
	if logger == nil {
		logger = NewLogger(os.Stderr, LevelWarn)
	}

	fs := float64(sampleRate)
	bitSampleCount := fs / baudRate
	cutoff := baudRate / fs

	r := &Receiver{
		sampleRate:     fs,
		onlySitorB:     onlySitorB,
		reverse:        reverse,
		out:            out,
		logger:         logger,
		baudRate:       baudRate,
		bitSampleCount: bitSampleCount,
		markMixer:      dsp.NewMixer(centerFrequency+deviation, fs),
		spaceMixer:     dsp.NewMixer(centerFrequency-deviation, fs),
		markLPF:        dsp.NewLowpassFilter(cutoff, filterLen),
		spaceLPF:       dsp.NewLowpassFilter(cutoff, filterLen),
		nextEarly:      0,
		nextPrompt:     bitSampleCount / 5,
		nextLate:       bitSampleCount * 2 / 5,
		state:          SyncSetup,
		bitValues:      make([]int, bitBufferBits),
		codec:          ccir476.New(),
		framer:         NewFramer(out, onlySitorB, logger),
	}
	return r, nil
}

// ProcessData pushes a batch of real-valued samples ([-1, 1]) through the
// full receive chain. It is the sole entry point into the receiver and must
// not be called concurrently with itself.
func (r *Receiver) ProcessData(samples []float64) error {
	if err := r.framer.CheckTimeout(r.timeSec); err != nil {
		return err
	}

	for _, x := range samples {
		r.timeSec = float64(r.sampleCount) / r.sampleRate

		dv := 32767 * x
		z := complex(dv, dv)

		zMark := r.markMixer.Step(z)
		markOut := r.markLPF.Push(zMark)

		zSpace := r.spaceMixer.Step(z)
		spaceOut := r.spaceLPF.Push(zSpace)

		if spaceOut != nil {
			if err := r.processFilterOutput(markOut, spaceOut); err != nil {
				return err
			}
		}
	}
	return nil
}

// processFilterOutput consumes one burst of filtered mark/space samples,
// running the discriminator, bit synchronizer, and character pipeline over
// each one in turn.
func (r *Receiver) processFilterOutput(zpMark, zpSpace []complex128) error {
	n := len(zpSpace)
	for i := 0; i < n; i++ {
		markAbs := cmplx.Abs(zpMark[i])
		spaceAbs := cmplx.Abs(zpSpace[i])

		r.processMulticorrelator()

		r.markEnv = envelopeDecay(r.markEnv, markAbs, r.bitSampleCount)
		r.markNoise = noiseDecay(r.markNoise, markAbs, r.bitSampleCount)
		r.spaceEnv = envelopeDecay(r.spaceEnv, spaceAbs, r.bitSampleCount)
		r.spaceNoise = noiseDecay(r.spaceNoise, spaceAbs, r.bitSampleCount)

		noiseFloor := (r.spaceNoise + r.markNoise) / 2

		markAbs = clip(markAbs, noiseFloor, r.markEnv)
		spaceAbs = clip(spaceAbs, noiseFloor, r.spaceEnv)

		logicLevel := (markAbs-noiseFloor)*(r.markEnv-noiseFloor) -
			(spaceAbs-noiseFloor)*(r.spaceEnv-noiseFloor) -
			0.5*((r.markEnv-noiseFloor)*(r.markEnv-noiseFloor)-(r.spaceEnv-noiseFloor)*(r.spaceEnv-noiseFloor))

		markState := int(math.Log(1 + math.Abs(logicLevel)))
		if logicLevel < 0 {
			markState = -markState
		}

		r.earlyAcc += float64(markState)
		r.promptAcc += float64(markState)
		r.lateAcc += float64(markState)

		sc := float64(r.sampleCount)

		if sc >= r.nextEarly {
			r.avgEarly = decayAvg(r.avgEarly, math.Abs(r.earlyAcc), 64)
			r.nextEarly += r.bitSampleCount
			r.earlyAcc = 0
		}
		if sc >= r.nextLate {
			r.avgLate = decayAvg(r.avgLate, math.Abs(r.lateAcc), 64)
			r.nextLate += r.bitSampleCount
			r.lateAcc = 0
		}

		promptEvent := sc >= r.nextPrompt
		if promptEvent {
			r.avgPrompt = decayAvg(r.avgPrompt, math.Abs(r.promptAcc), 64)
			r.nextPrompt += r.bitSampleCount
			r.averagedMarkState = int(r.promptAcc)
			if r.reverse {
				r.averagedMarkState = -r.averagedMarkState
			}
			r.promptAcc = 0
		}

		switch r.state {
		case SyncSetup:
			r.errorCount = 0
			r.shift = false
			r.setState(Sync)
		case Sync, ReadData:
			if promptEvent {
				if err := r.handleBitValue(r.averagedMarkState); err != nil {
					return err
				}
			}
		}

		r.sampleCount++
	}
	return nil
}

// processMulticorrelator re-aligns the early/prompt/late sampling schedule
// once every eight bit periods, tugging the schedule toward wherever the
// accumulated signal magnitude peaks.
func (r *Receiver) processMulticorrelator() {
	period := int(r.bitSampleCount * 8)
	if period == 0 || r.sampleCount%period != 0 {
		return
	}

	slope := r.avgLate - r.avgEarly

	if r.avgPrompt*1.05 < r.avgEarly && r.avgPrompt*1.05 < r.avgLate {
		if r.avgEarly > r.avgLate {
			slope = math.Mod(r.nextEarly-r.nextPrompt-r.bitSampleCount, r.bitSampleCount)
			r.avgLate = r.avgPrompt
			r.avgPrompt = r.avgEarly
		} else {
			slope = math.Mod(r.nextLate-r.nextPrompt+r.bitSampleCount, r.bitSampleCount)
			r.avgEarly = r.avgPrompt
			r.avgPrompt = r.avgLate
		}
	} else {
		slope /= 1024
	}

	if slope != 0 {
		r.nextEarly += slope
		r.nextPrompt += slope
		r.nextLate += slope
		r.logger.Debugf("adjusting by %.2f, early %.1f, prompt %.1f, late %.1f",
			slope, r.avgEarly, r.avgPrompt, r.avgLate)
	}
}

// handleBitValue shifts a new soft bit into the buffer and drives the
// character-synchronization state machine.
func (r *Receiver) handleBitValue(accumulator int) error {
	n := len(r.bitValues)
	copy(r.bitValues, r.bitValues[1:])
	r.bitValues[n-1] = accumulator
	if r.bitCursor > 0 {
		r.bitCursor--
	}

	if r.state == Sync {
		if offset := r.findAlphaCharacters(); offset >= 0 {
			r.setState(ReadData)
			r.bitCursor = offset
			r.alphaPhase = true
		} else {
			r.setState(SyncSetup)
		}
	}

	if r.state == ReadData && r.bitCursor < n-7 {
		if r.alphaPhase {
			ret, err := r.processBytes(r.bitCursor)
			if err != nil {
				return err
			}
			r.errorCount -= ret
			if r.errorCount > 5 {
				r.setState(SyncSetup)
			}
			if r.errorCount < 0 {
				r.errorCount = 0
			}
		}
		r.alphaPhase = !r.alphaPhase
		r.bitCursor += 7
	}
	return nil
}

func (r *Receiver) setState(s State) {
	if s != r.state {
		r.state = s
		r.logger.Infof("state: %s", s)
	}
}

// processChar dispatches a decoded 7-bit codeword: control codes update
// shift/phase state, everything else is translated to a character and
// handed to the output filter and message framer.
func (r *Receiver) processChar(code int) error {
	var err error
	switch code {
	case ccir476.Rep:
		if r.lastChar == ccir476.Rep {
			r.logger.Debugf("fixing rep/alpha sync")
			r.alphaPhase = false
		}
	case ccir476.Alpha, ccir476.Beta, ccir476.Char32:
		// consumed silently
	case ccir476.LTRS:
		r.shift = false
	case ccir476.FIGS:
		r.shift = true
	default:
		ch := r.codec.CodeToChar(code, r.shift)
		if ch < 0 {
			r.logger.Infof("missed code: %#x", -ch)
		} else {
			if err = r.filterPrint(byte(ch)); err == nil {
				err = r.framer.Push(byte(ch), r.timeSec)
			}
		}
	}
	r.lastChar = code
	return err
}

// filterPrint writes the raw decoded character stream: BELL becomes an
// apostrophe, and carriage returns / phantom ALPHA / REP characters are
// dropped from the raw stream (but still reach the framer for header and
// trailer detection).
func (r *Receiver) filterPrint(c byte) error {
	if c == ccir476.Bell {
		_, err := r.out.Write([]byte{'\''})
		return err
	}
	if c != '\r' && int(c) != ccir476.Alpha && int(c) != ccir476.Rep {
		_, err := r.out.Write([]byte{c})
		return err
	}
	return nil
}

// clip clamps v into [lo, hi], applying the upper bound first and the lower
// bound second - matching the original's min(x,env) then max(.,floor) order,
// so that an invariant violation (floor > env) always resolves to floor.
func clip(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// decayAvg is the shared decayed-average recurrence used by the envelope,
// noise, and multicorrelator trackers: avg' = avg + (value-avg)/divisor.
func decayAvg(avg, value float64, divisor int) float64 {
	if divisor < 1 {
		divisor = 1
	}
	return avg + (value-avg)/float64(divisor)
}

// envelopeDecay tracks a fast-attack, slow-decay envelope estimate.
func envelopeDecay(avg, value, bitSampleCount float64) float64 {
	var divisor int
	if value > avg {
		divisor = int(bitSampleCount / 4)
	} else {
		divisor = int(bitSampleCount * 16)
	}
	return decayAvg(avg, value, divisor)
}

// noiseDecay tracks a slow-attack, fast-decay noise-floor estimate.
func noiseDecay(avg, value, bitSampleCount float64) float64 {
	var divisor int
	if value < avg {
		divisor = int(bitSampleCount / 4)
	} else {
		divisor = int(bitSampleCount * 48)
	}
	return decayAvg(avg, value, divisor)
}
