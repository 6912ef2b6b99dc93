package graph

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/shelving"

	"github.com/cwbudde/algo-live/config"
	"github.com/cwbudde/algo-live/dsp/drive"
	"github.com/cwbudde/algo-live/dsp/gate"
)

// gainStage multiplies the block by a single value.
type gainStage struct {
	name  string
	value atomicFloat
}

func newGainStage(name string, v float64) *gainStage {
	s := &gainStage{name: name}
	s.value.Store(v)
	return s
}

func (s *gainStage) Name() string { return s.name }

func (s *gainStage) Set(v float64) { s.value.Store(v) }

func (s *gainStage) Process(block []float64) {
	g := s.value.Load()
	if g == 1 {
		return
	}
	for i := range block {
		block[i] *= g
	}
}

// driveStage wraps the oversampled waveshaper.
type driveStage struct {
	shaper *drive.Shaper
}

func newDriveStage(amount float64) (*driveStage, error) {
	shaper, err := drive.NewShaper(amount)
	if err != nil {
		return nil, fmt.Errorf("graph: drive stage: %w", err)
	}
	return &driveStage{shaper: shaper}, nil
}

func (s *driveStage) Name() string { return "drive" }

func (s *driveStage) Process(block []float64) { s.shaper.Process(block) }

// gateStage wraps the block-rate noise gate controller. The graph owns
// the controller and drives it explicitly every block; its lifetime is
// the graph's lifetime, not a property of chain connectivity.
type gateStage struct {
	ctl *gate.Controller
}

func newGateStage(sampleRate float64, cfg config.Gate) (*gateStage, error) {
	ctl, err := gate.NewController(sampleRate, gate.Params{
		ThresholdDB:    cfg.ThresholdDB,
		ReleaseSeconds: cfg.ReleaseSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("graph: gate stage: %w", err)
	}
	return &gateStage{ctl: ctl}, nil
}

func (s *gateStage) Name() string { return "noiseGate" }

func (s *gateStage) Process(block []float64) { s.ctl.ProcessBlock(block) }

// compressorStage wraps the soft-knee compressor. Parameter snapshots
// from the control path are applied at the next block boundary so the
// render path never sees a half-written coefficient set.
type compressorStage struct {
	comp    *dynamics.Compressor
	pending atomic.Pointer[config.Compressor]
}

func newCompressorStage(sampleRate float64, cfg config.Compressor) (*compressorStage, error) {
	comp, err := dynamics.NewCompressor(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("graph: compressor stage: %w", err)
	}
	s := &compressorStage{comp: comp}
	if err := s.apply(cfg); err != nil {
		return nil, fmt.Errorf("graph: compressor stage: %w", err)
	}
	return s, nil
}

func (s *compressorStage) Name() string { return "compressor" }

// Update publishes a new snapshot; values were validated at the
// configuration boundary.
func (s *compressorStage) Update(params config.Compressor) {
	s.pending.Store(&params)
}

func (s *compressorStage) Process(block []float64) {
	if p := s.pending.Swap(nil); p != nil {
		// Validated upstream; a failed setter keeps the prior value.
		_ = s.apply(*p)
	}
	s.comp.ProcessInPlace(block)
}

func (s *compressorStage) apply(cfg config.Compressor) error {
	if err := s.comp.SetThreshold(cfg.ThresholdDB); err != nil {
		return err
	}
	if err := s.comp.SetKnee(cfg.KneeDB); err != nil {
		return err
	}
	if err := s.comp.SetRatio(cfg.Ratio); err != nil {
		return err
	}
	if err := s.comp.SetAttack(cfg.AttackMs); err != nil {
		return err
	}
	return s.comp.SetRelease(cfg.ReleaseMs)
}

// eqStage is one equalizer band: designed coefficients behind an atomic
// pointer over a Direct Form II Transposed section whose state lives in
// the stage. A flat band (0 dB) installs no coefficients and passes
// audio through untouched.
type eqStage struct {
	name       string
	sampleRate float64
	coeffs     atomic.Pointer[biquad.Coefficients]
	d0, d1     float64
}

func newEQStage(sampleRate float64, band config.EQBand) (*eqStage, error) {
	s := &eqStage{name: "eq." + band.ID, sampleRate: sampleRate}
	if err := s.SetBand(band); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *eqStage) Name() string { return s.name }

// SetBand designs and installs new coefficients for the band.
func (s *eqStage) SetBand(band config.EQBand) error {
	if band.GainDB == 0 {
		s.coeffs.Store(nil)
		return nil
	}

	coeffs, err := designBand(s.sampleRate, band)
	if err != nil {
		return fmt.Errorf("graph: design band %q: %w", band.ID, err)
	}
	s.coeffs.Store(&coeffs)
	return nil
}

func (s *eqStage) Process(block []float64) {
	c := s.coeffs.Load()
	if c == nil {
		return
	}

	d0, d1 := s.d0, s.d1
	for i, x := range block {
		y := c.B0*x + d0
		d0 = c.B1*x - c.A1*y + d1
		d1 = c.B2*x - c.A2*y
		block[i] = y
	}
	s.d0, s.d1 = d0, d1
}

func designBand(sampleRate float64, band config.EQBand) (biquad.Coefficients, error) {
	freq := band.FrequencyHz
	if nyquist := sampleRate * 0.49; freq > nyquist {
		freq = nyquist
	}

	var (
		coeffs []biquad.Coefficients
		err    error
	)
	switch band.Kind {
	case config.FilterLowShelf:
		coeffs, err = shelving.ButterworthLowShelf(sampleRate, freq, band.GainDB, 1)
	case config.FilterHighShelf:
		coeffs, err = shelving.ButterworthHighShelf(sampleRate, freq, band.GainDB, 1)
	case config.FilterPeaking:
		coeffs, err = design.PeakCascade(sampleRate, freq, band.Q, band.GainDB, 1)
	default:
		return biquad.Coefficients{}, fmt.Errorf("unknown filter kind: %q", band.Kind)
	}
	if err != nil {
		return biquad.Coefficients{}, err
	}
	if len(coeffs) == 0 {
		return biquad.Coefficients{}, fmt.Errorf("empty design for kind %q", band.Kind)
	}
	return coeffs[0], nil
}

// panStage fans the mono chain out to stereo with equal-power gains.
type panStage struct {
	pan atomicFloat
}

func newPanStage(pan float64) *panStage {
	s := &panStage{}
	s.pan.Store(pan)
	return s
}

func (s *panStage) Name() string { return "panner" }

func (s *panStage) Set(pan float64) { s.pan.Store(pan) }

// Fan writes the panned stereo pair for one mono block. The equal-power
// law is normalized to unity at center so a neutral chain stays
// bit-transparent per channel.
func (s *panStage) Fan(in, outL, outR []float64) {
	pan := s.pan.Load()
	if pan == 0 {
		copy(outL, in)
		copy(outR, in)
		return
	}

	theta := (pan + 1) * math.Pi / 4
	lg := math.Cos(theta) * math.Sqrt2
	rg := math.Sin(theta) * math.Sqrt2
	for i, v := range in {
		outL[i] = v * lg
		outR[i] = v * rg
	}
}
