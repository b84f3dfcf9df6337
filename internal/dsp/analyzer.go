/*
Package dsp implements the spectral analysis stage: one fixed-size block of
raw microphone samples in, one magnitude per monitored ultrasonic carrier
out. All buffers are pre-allocated; Process performs no allocations beyond
the returned magnitude map.
*/
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"lumitone/pkg/bitint"
)

// Pre-allocated buffers for FFT calculations.
type workspace struct {
	input     []float64    // Buffer for windowed input signal.
	fftOutput []complex128 // Buffer for FFT complex results.
	window    []float64    // Pre-calculated Hann window coefficients.
}

// Analyzer converts one block of int16 mono samples into a magnitude value
// for each target carrier frequency. Carrier/bin compatibility is validated
// eagerly at construction; Process cannot fail.
type Analyzer struct {
	fftCalculator *fourier.FFT // Reusable FFT calculator instance.
	fftSize       int          // Number of points for the FFT (power of 2).
	sampleRate    float64      // Sample rate of the input audio (Hz).
	neighborCount int          // Bins averaged on each side of a carrier bin.
	targets       []int        // Carrier frequencies (Hz), declared order.
	bins          []int        // Nominal bin index per carrier, same order.
	workspace     workspace
}

// NewAnalyzer validates the sampleRate/fftSize/carrier combination and
// pre-allocates all processing buffers. A carrier whose nominal or neighbor
// bin falls outside [0, fftSize/2) is a fatal configuration error.
func NewAnalyzer(fftSize int, sampleRate float64, neighborCount int, targets []int) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if neighborCount < 0 {
		return nil, fmt.Errorf("neighbor count must be >= 0, got %d", neighborCount)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one target frequency is required")
	}

	halfSize := fftSize / 2
	bins := make([]int, len(targets))
	for i, f := range targets {
		idx := int(math.Round(float64(f) * float64(fftSize) / sampleRate))
		if idx-neighborCount < 0 || idx+neighborCount >= halfSize {
			return nil, fmt.Errorf(
				"target %d Hz maps to bins [%d, %d], outside [0, %d) for fft_size=%d sample_rate=%.0f",
				f, idx-neighborCount, idx+neighborCount, halfSize, fftSize, sampleRate)
		}
		bins[i] = idx
	}

	windowCoeffs := make([]float64, fftSize)
	for i := range windowCoeffs {
		windowCoeffs[i] = 1.0
	}
	window.Hann(windowCoeffs)

	// FFT output size for real input is N/2 + 1 complex values.
	return &Analyzer{
		fftCalculator: fourier.NewFFT(fftSize),
		fftSize:       fftSize,
		sampleRate:    sampleRate,
		neighborCount: neighborCount,
		targets:       append([]int(nil), targets...),
		bins:          bins,
		workspace: workspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, fftSize/2+1),
			window:    windowCoeffs,
		},
	}, nil
}

// Process performs windowed FFT analysis on one sample block and returns a
// fresh magnitude map keyed by carrier frequency. Each carrier's value is
// the average of 2*neighborCount+1 bin magnitudes centered on its nominal
// bin, with each bin magnitude scaled to approximate the original signal
// amplitude in raw sample units. Input shorter than the FFT size is
// zero-padded; the excess of a longer input is ignored.
func (a *Analyzer) Process(block []int16) map[int]float64 {
	inputLen := len(block)
	for i := 0; i < a.fftSize; i++ {
		if i < inputLen {
			a.workspace.input[i] = float64(block[i]) * a.workspace.window[i]
		} else {
			a.workspace.input[i] = 0 // Zero-padding.
		}
	}

	a.fftCalculator.Coefficients(a.workspace.fftOutput, a.workspace.input)

	// Amplitude per bin: |X[k]| / (N/2), doubled to compensate for the
	// Hann window's coherent gain of 0.5.
	scale := 2.0 / float64(a.fftSize/2)

	mags := make(map[int]float64, len(a.targets))
	span := 2*a.neighborCount + 1
	for i, f := range a.targets {
		var sum float64
		for bin := a.bins[i] - a.neighborCount; bin <= a.bins[i]+a.neighborCount; bin++ {
			sum += cmplx.Abs(a.workspace.fftOutput[bin]) * scale
		}
		mags[f] = sum / float64(span)
	}
	return mags
}

// FrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (a *Analyzer) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(a.workspace.fftOutput) {
		return 0.0
	}
	return float64(binIndex) * (a.sampleRate / float64(a.fftSize))
}

// FFTSize returns the configured FFT size (number of points).
func (a *Analyzer) FFTSize() int {
	return a.fftSize
}

// SampleRate returns the configured sample rate (Hz).
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}

// Targets returns the carrier frequencies in declared order.
func (a *Analyzer) Targets() []int {
	return append([]int(nil), a.targets...)
}
