// Package testutil provides deterministic signal generators and tolerance
// helpers shared by the engine and DSP package tests.
package testutil

import (
	"math"
	"math/rand"
)

// Sine generates a deterministic sine wave.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Noise generates white noise with a fixed seed for reproducibility.
func Noise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Silence returns a zero-valued block of the given length.
func Silence(length int) []float64 {
	return make([]float64, length)
}

// Blocks splits signal into consecutive blocks of blockSize samples,
// dropping any trailing partial block.
func Blocks(signal []float64, blockSize int) [][]float64 {
	if blockSize <= 0 {
		return nil
	}
	var out [][]float64
	for i := 0; i+blockSize <= len(signal); i += blockSize {
		out = append(out, signal[i:i+blockSize])
	}
	return out
}
