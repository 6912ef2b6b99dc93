package graph

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"

	"github.com/cwbudde/algo-live/config"
	"github.com/cwbudde/algo-live/dsp/irgen"
)

// reverbIRSeed fixes the synthesized impulse so rebuilds from the same
// configuration produce identical graphs.
const reverbIRSeed = 0x5eed

// reverbMinBlockOrder sets the convolution latency to 2^8 = 256 samples.
const reverbMinBlockOrder = 8

// reverbStage forks each channel into a dry branch and a convolved wet
// branch and remerges them with dryGain = 1-mix, wetGain = mix. At
// mix=0 the wet branch contributes exactly nothing, matching a full
// bypass within float tolerance.
type reverbStage struct {
	left  *reverb.ConvolutionReverb
	right *reverb.ConvolutionReverb
	mix   atomicFloat
}

func newReverbStage(sampleRate float64, cfg config.Reverb) (*reverbStage, error) {
	ir, err := irgen.Synthesize(sampleRate, reverbIRSeed)
	if err != nil {
		return nil, fmt.Errorf("graph: reverb stage: %w", err)
	}

	left, err := reverb.NewConvolutionReverb(ir.Left, reverbMinBlockOrder)
	if err != nil {
		return nil, fmt.Errorf("graph: reverb stage left: %w", err)
	}
	right, err := reverb.NewConvolutionReverb(ir.Right, reverbMinBlockOrder)
	if err != nil {
		return nil, fmt.Errorf("graph: reverb stage right: %w", err)
	}

	s := &reverbStage{left: left, right: right}
	s.mix.Store(cfg.Mix)
	return s, nil
}

func (s *reverbStage) Name() string { return "reverb" }

// SetMix publishes a new dry/wet balance.
func (s *reverbStage) SetMix(mix float64) { s.mix.Store(mix) }

// Process applies the dry/wet remix per channel. The wet/dry gains are
// read once per block; the convolution engines are only ever touched
// from the render path.
func (s *reverbStage) Process(outL, outR []float64) {
	mix := s.mix.Load()
	s.left.SetWetDry(mix, 1-mix)
	s.right.SetWetDry(mix, 1-mix)

	// A convolution fault must not propagate into the render path; the
	// dry/wet sum written so far simply stands.
	_ = s.left.ProcessInPlace(outL)
	_ = s.right.ProcessInPlace(outR)
}
