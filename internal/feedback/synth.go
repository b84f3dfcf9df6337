/*
Package feedback implements the optional audible-feedback synthesizer: it
re-encodes each carrier magnitude map into an audio block via an inverse
FFT and streams the result to a WAV file. It is a sibling consumer of the
magnitude stream and sits outside the decode/animate critical path.
*/
package feedback

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/dsp/fourier"

	applog "lumitone/internal/log"
	"lumitone/pkg/bitint"
)

// Synthesizer reconstructs audio from carrier magnitudes. Consume is cheap
// enough to run from the capture callback; file I/O errors are logged and
// the synthesizer keeps running.
type Synthesizer struct {
	fftCalculator *fourier.FFT
	fftSize       int
	sampleRate    float64
	carriers      []int
	bins          []int

	// Pre-allocated synthesis buffers.
	coeffs  []complex128
	samples []float64

	active int32 // Atomic flag for thread-safe state.

	mu         sync.Mutex
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer
}

// NewSynthesizer validates the carrier/bin combination the same way the
// analyzer does and pre-allocates the synthesis buffers.
func NewSynthesizer(fftSize int, sampleRate float64, carriers []int) (*Synthesizer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	halfSize := fftSize / 2
	bins := make([]int, len(carriers))
	for i, f := range carriers {
		idx := int(math.Round(float64(f) * float64(fftSize) / sampleRate))
		if idx < 0 || idx >= halfSize {
			return nil, fmt.Errorf("carrier %d Hz maps to bin %d, outside [0, %d)", f, idx, halfSize)
		}
		bins[i] = idx
	}

	return &Synthesizer{
		fftCalculator: fourier.NewFFT(fftSize),
		fftSize:       fftSize,
		sampleRate:    sampleRate,
		carriers:      append([]int(nil), carriers...),
		bins:          bins,
		coeffs:        make([]complex128, fftSize/2+1),
		samples:       make([]float64, fftSize),
	}, nil
}

// Start opens the output WAV file and begins accepting magnitude maps.
func (s *Synthesizer) Start(filename string) error {
	if atomic.LoadInt32(&s.active) == 1 {
		return fmt.Errorf("feedback synthesizer already started")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create feedback file: %w", err)
	}

	s.mu.Lock()
	s.outputFile = file
	s.wavEncoder = wav.NewEncoder(file, int(s.sampleRate), 16, 1, 1)
	s.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  int(s.sampleRate),
		},
		SourceBitDepth: 16,
		Data:           make([]int, s.fftSize),
	}
	s.mu.Unlock()

	atomic.StoreInt32(&s.active, 1)
	applog.Infof("feedback: synthesizing to %s", filename)
	return nil
}

// Consume re-encodes one magnitude map into fftSize samples and appends
// them to the output file. No-op until Start has been called.
func (s *Synthesizer) Consume(mags map[int]float64) {
	if atomic.LoadInt32(&s.active) != 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wavEncoder == nil {
		return
	}

	// Place each carrier magnitude on its bin. The sequence transform is
	// unnormalized, so a coefficient of mag/2 yields a cosine of amplitude
	// mag in raw sample units.
	for i := range s.coeffs {
		s.coeffs[i] = 0
	}
	for i, bin := range s.bins {
		s.coeffs[bin] = complex(mags[s.carriers[i]]/2, 0)
	}
	s.fftCalculator.Sequence(s.samples, s.coeffs)

	for i, v := range s.samples {
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		s.sampleBuf.Data[i] = int(v)
	}

	if err := s.wavEncoder.Write(s.sampleBuf); err != nil {
		applog.Errorf("feedback: WAV write failed: %v", err)
	}
}

// Stop finalizes and closes the output file. Safe to call when not started.
func (s *Synthesizer) Stop() error {
	if atomic.LoadInt32(&s.active) == 0 {
		return nil
	}
	atomic.StoreInt32(&s.active, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wavEncoder != nil {
		if err := s.wavEncoder.Close(); err != nil {
			return err
		}
		s.wavEncoder = nil
	}
	if s.outputFile != nil {
		if err := s.outputFile.Close(); err != nil {
			return err
		}
		s.outputFile = nil
	}
	return nil
}
