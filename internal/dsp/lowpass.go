package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// LowpassFilter is a finite-impulse-response low-pass filter implemented as
// overlap-save FFT convolution. It accepts one complex sample per call via
// Push and, once every filterLen samples, produces a burst of filterLen
// filtered output samples - mirroring fldigi's fftfilt, rebuilt here on top
// of gonum's FFT rather than a hand-rolled one.
type LowpassFilter struct {
	filterLen int
	fftLen    int

	freqResponse []complex128
	window       []complex128 // sliding fftLen-sample input window
	filled       int          // samples accumulated in the tail half since the last block

	fft     *fourier.CmplxFFT
	scratch []complex128
}

// NewLowpassFilter builds a low-pass filter with the given normalized cutoff
// frequency (cycles/sample, i.e. Hz / sample_rate) and number of taps.
// filterLen must be a power of two; the FFT block size is 2*filterLen.
func NewLowpassFilter(cutoff float64, filterLen int) *LowpassFilter {
	fftLen := 2 * filterLen

	taps := designLowpass(cutoff, filterLen)
	padded := make([]complex128, fftLen)
	for i, t := range taps {
		padded[i] = complex(t, 0)
	}

	fft := fourier.NewCmplxFFT(fftLen)
	freqResponse := fft.Coefficients(nil, padded)

	return &LowpassFilter{
		filterLen:    filterLen,
		fftLen:       fftLen,
		freqResponse: freqResponse,
		window:       make([]complex128, fftLen),
		fft:          fft,
	}
}

// designLowpass builds filterLen windowed-sinc taps for a low-pass filter
// with the given normalized cutoff, normalized to unity DC gain.
func designLowpass(cutoff float64, filterLen int) []float64 {
	taps := make([]float64, filterLen)
	center := float64(filterLen-1) / 2

	var sum float64
	for i := 0; i < filterLen; i++ {
		n := float64(i) - center
		var ideal float64
		if n == 0 {
			ideal = 2 * cutoff
		} else {
			ideal = math.Sin(2*math.Pi*cutoff*n) / (math.Pi * n)
		}
		// Hamming window.
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(filterLen-1))
		taps[i] = ideal * w
		sum += taps[i]
	}
	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}
	return taps
}

// Push feeds one complex input sample into the filter. It returns a burst of
// output samples (length filterLen) whenever the internal block boundary is
// reached, and nil otherwise.
func (f *LowpassFilter) Push(x complex128) []complex128 {
	copy(f.window, f.window[1:])
	f.window[f.fftLen-1] = x
	f.filled++

	if f.filled < f.filterLen {
		return nil
	}
	f.filled = 0

	coeffs := f.fft.Coefficients(nil, f.window)
	for i := range coeffs {
		coeffs[i] *= f.freqResponse[i]
	}
	f.scratch = f.fft.Sequence(f.scratch, coeffs)

	// Overlap-save: the first filterLen samples of the block are corrupted
	// by circular wraparound, the last filterLen are the valid linear
	// convolution result. gonum follows the fftpack convention where the
	// inverse transform is unnormalized, so Coefficients then Sequence
	// scales by fftLen; divide it back out here.
	scale := complex(1/float64(f.fftLen), 0)
	out := make([]complex128, f.filterLen)
	for i, v := range f.scratch[f.filterLen:] {
		out[i] = v * scale
	}
	return out
}
