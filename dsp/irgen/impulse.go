// Package irgen synthesizes stereo impulse responses for the
// convolution reverb stage.
//
// The impulse is exponentially decaying white noise: two seconds of
// uniform noise shaped by (1 - i/n)^2.5, drawn independently per channel
// so the channels stay uncorrelated. Generation is deterministic per
// seed, which keeps rebuilds idempotent.
package irgen

import (
	"fmt"
	"math"
	"math/rand"
)

// DurationSeconds is the fixed impulse response length.
const DurationSeconds = 2.0

// decayExponent shapes the noise envelope.
const decayExponent = 2.5

// Impulse holds one synthesized stereo impulse response.
type Impulse struct {
	Left  []float64
	Right []float64
}

// Synthesize generates a stereo impulse response of 2 * sampleRate
// samples per channel. The same sample rate and seed always produce the
// same impulse.
func Synthesize(sampleRate float64, seed int64) (Impulse, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return Impulse{}, fmt.Errorf("irgen: sample rate must be positive and finite: %f", sampleRate)
	}

	length := int(sampleRate * DurationSeconds)
	if length < 1 {
		return Impulse{}, fmt.Errorf("irgen: sample rate too low: %f", sampleRate)
	}

	return Impulse{
		Left:  channel(length, seed),
		Right: channel(length, seed+1),
	}, nil
}

func channel(length int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, length)
	n := float64(length)
	for i := range out {
		noise := rng.Float64()*2 - 1
		envelope := math.Pow(1-float64(i)/n, decayExponent)
		out[i] = noise * envelope
	}
	return out
}
