package feedback

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"lumitone/internal/decode"
	"lumitone/internal/dsp"
)

const (
	testFFTSize    = 1024
	testSampleRate = 44100
)

func TestNewSynthesizer_Rejects(t *testing.T) {
	if _, err := NewSynthesizer(1000, testSampleRate, decode.Carriers()); err == nil {
		t.Error("expected error for non power-of-two fft size")
	}
	if _, err := NewSynthesizer(testFFTSize, 0, decode.Carriers()); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewSynthesizer(testFFTSize, 8000, decode.Carriers()); err == nil {
		t.Error("expected error for carriers beyond the bin range")
	}
}

func TestConsume_BeforeStartIsNoop(t *testing.T) {
	synth, err := NewSynthesizer(testFFTSize, testSampleRate, decode.Carriers())
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	// Must not panic or write anywhere.
	synth.Consume(map[int]float64{18750: 5000})
	if err := synth.Stop(); err != nil {
		t.Errorf("Stop on idle synthesizer: %v", err)
	}
}

func TestSynthesizeLoopback(t *testing.T) {
	carriers := decode.Carriers()
	synth, err := NewSynthesizer(testFFTSize, testSampleRate, carriers)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}

	path := filepath.Join(t.TempDir(), "feedback.wav")
	if err := synth.Start(path); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mags := map[int]float64{18750: 5000}
	synth.Consume(mags)
	if err := synth.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Read the synthesized block back and analyze it: the re-encoded
	// carrier must dominate at roughly the requested amplitude.
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	wavDecoder := wav.NewDecoder(f)
	buf, err := wavDecoder.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	if len(buf.Data) != testFFTSize {
		t.Fatalf("expected %d samples, got %d", testFFTSize, len(buf.Data))
	}

	block := make([]int16, testFFTSize)
	for i, v := range buf.Data {
		block[i] = int16(v)
	}

	analyzer, err := dsp.NewAnalyzer(testFFTSize, testSampleRate, 2, carriers)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	result := analyzer.Process(block)

	best, bestMag := 0, 0.0
	for freq, m := range result {
		if m > bestMag {
			best, bestMag = freq, m
		}
	}
	if best != 18750 {
		t.Errorf("expected 18750 Hz to dominate the synthesized block, got %d", best)
	}
	// An exact-bin cosine under a Hann analysis window averages to 2/5 of
	// its amplitude over the 5-bin neighborhood.
	if math.Abs(bestMag-2000) > 500 {
		t.Errorf("expected dominant magnitude near 2000, got %.1f", bestMag)
	}
}

func TestStartTwiceFails(t *testing.T) {
	synth, err := NewSynthesizer(testFFTSize, testSampleRate, decode.Carriers())
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	dir := t.TempDir()
	if err := synth.Start(filepath.Join(dir, "a.wav")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer synth.Stop()
	if err := synth.Start(filepath.Join(dir, "b.wav")); err == nil {
		t.Error("expected second Start to fail")
	}
}
