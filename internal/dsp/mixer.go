// Package dsp holds the small signal-processing primitives shared by the
// mark and space branches of the receiver: the quadrature down-conversion
// mixer and the FFT overlap-save low-pass filter.
package dsp

import "math"

// Mixer down-converts a real (or already-complex) input by a fixed
// frequency, tracking its own running phase between calls.
//
// It reproduces navtex_rx's mixer() verbatim, including the historical
// single-sided wrap of the phase accumulator into (-2*Pi, 0].
type Mixer struct {
	phase      float64
	freq       float64
	sampleRate float64
}

// NewMixer builds a mixer for the given down-conversion frequency (Hz) and
// sample rate (Hz), with phase starting at zero.
func NewMixer(freq, sampleRate float64) *Mixer {
	return &Mixer{freq: freq, sampleRate: sampleRate}
}

// Step multiplies in by the mixer's current complex exponential and advances
// the phase by one sample period.
func (m *Mixer) Step(in complex128) complex128 {
	out := complex(math.Cos(m.phase), math.Sin(m.phase)) * in

	m.phase -= 2.0 * math.Pi * m.freq / m.sampleRate
	if m.phase < -2.0*math.Pi {
		m.phase += 2.0 * math.Pi
	}
	return out
}
