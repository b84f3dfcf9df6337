package dsp

import (
	"math"
	"testing"

	"lumitone/pkg/utils"
)

const (
	testFFTSize    = 1024
	testSampleRate = 44100
)

var testCarriers = []int{18500, 18750, 19000, 19250, 19500}

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(testFFTSize, testSampleRate, 2, testCarriers)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func TestNewAnalyzer_Rejects(t *testing.T) {
	tests := []struct {
		name          string
		fftSize       int
		sampleRate    float64
		neighborCount int
		targets       []int
	}{
		{"fft size not power of two", 1000, testSampleRate, 2, testCarriers},
		{"zero sample rate", testFFTSize, 0, 2, testCarriers},
		{"negative neighbor count", testFFTSize, testSampleRate, -1, testCarriers},
		{"no targets", testFFTSize, testSampleRate, 2, nil},
		{"carrier beyond nyquist", testFFTSize, 8000, 2, testCarriers},
		{"neighbor bin beyond range", testFFTSize, 39100, 2, []int{19500}},
		{"neighbor bin below zero", testFFTSize, testSampleRate, 2, []int{40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAnalyzer(tt.fftSize, tt.sampleRate, tt.neighborCount, tt.targets); err == nil {
				t.Error("expected construction error, got nil")
			}
		})
	}
}

func TestProcess_DominantCarrier(t *testing.T) {
	analyzer := newTestAnalyzer(t)

	for _, carrier := range testCarriers {
		block := utils.GenerateTone(testFFTSize, testSampleRate, float64(carrier), 10000)
		mags := analyzer.Process(block)

		if len(mags) != len(testCarriers) {
			t.Fatalf("expected %d magnitudes, got %d", len(testCarriers), len(mags))
		}

		best, bestMag := 0, 0.0
		for f, m := range mags {
			if m < 0 {
				t.Errorf("negative magnitude %f for %d Hz", m, f)
			}
			if m > bestMag {
				best, bestMag = f, m
			}
		}
		if best != carrier {
			t.Errorf("expected %d Hz to dominate, got %d Hz (%.1f)", carrier, best, bestMag)
		}
		if bestMag < 1000 {
			t.Errorf("expected strong magnitude for %d Hz, got %.1f", carrier, bestMag)
		}
	}
}

func TestProcess_SilenceAndZeroPadding(t *testing.T) {
	analyzer := newTestAnalyzer(t)

	mags := analyzer.Process(make([]int16, testFFTSize))
	for f, m := range mags {
		if m > 1e-6 {
			t.Errorf("expected near-zero magnitude for %d Hz on silence, got %g", f, m)
		}
	}

	// A short block is zero-padded, not an error.
	short := utils.GenerateTone(testFFTSize/2, testSampleRate, 18500, 10000)
	mags = analyzer.Process(short)
	if len(mags) != len(testCarriers) {
		t.Errorf("expected %d magnitudes for short block, got %d", len(testCarriers), len(mags))
	}
}

func TestProcess_Deterministic(t *testing.T) {
	a1 := newTestAnalyzer(t)
	a2 := newTestAnalyzer(t)

	block := utils.GenerateToneMix(testFFTSize, testSampleRate,
		[]float64{18500, 19000}, []float64{8000, 4000})

	m1 := a1.Process(block)
	m2 := a2.Process(block)
	for f := range m1 {
		if math.Abs(m1[f]-m2[f]) > 1e-12 {
			t.Errorf("magnitudes differ between instances for %d Hz: %g vs %g", f, m1[f], m2[f])
		}
	}
}

func TestFrequencyForBin(t *testing.T) {
	analyzer := newTestAnalyzer(t)

	if got := analyzer.FrequencyForBin(0); got != 0 {
		t.Errorf("bin 0 should be DC, got %.1f", got)
	}
	resolution := testSampleRate / float64(testFFTSize)
	if got := analyzer.FrequencyForBin(100); math.Abs(got-100*resolution) > 1e-9 {
		t.Errorf("bin 100: got %.3f, want %.3f", got, 100*resolution)
	}
	if got := analyzer.FrequencyForBin(-1); got != 0 {
		t.Errorf("out of range bin should return 0, got %.1f", got)
	}
	if got := analyzer.FrequencyForBin(testFFTSize); got != 0 {
		t.Errorf("out of range bin should return 0, got %.1f", got)
	}
}

func BenchmarkProcess(b *testing.B) {
	analyzer, err := NewAnalyzer(testFFTSize, testSampleRate, 2, testCarriers)
	if err != nil {
		b.Fatalf("NewAnalyzer: %v", err)
	}
	block := utils.GenerateTone(testFFTSize, testSampleRate, 19000, 10000)

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		analyzer.Process(block)
	}
}
