// Package utils provides shared test helpers: deterministic signal
// generators for the ultrasonic carriers.
package utils

import "math"

// GenerateTone fills a block with a single sine carrier at the given
// frequency and peak amplitude (in raw int16 sample units).
func GenerateTone(size int, sampleRate, frequency, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int16(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// GenerateToneMix sums several carriers with per-carrier amplitudes into
// one block. Frequencies and amplitudes must have equal length.
func GenerateToneMix(size int, sampleRate float64, frequencies, amplitudes []float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		var signal float64
		for j, f := range frequencies {
			signal += math.Sin(2*math.Pi*f*t) * amplitudes[j]
		}
		buffer[i] = int16(signal)
	}
	return buffer
}
