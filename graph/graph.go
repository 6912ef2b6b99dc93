// Package graph assembles and runs the ordered effect chain.
//
// A Graph is built atomically from one configuration snapshot and never
// restructured afterwards: structural changes discard the whole graph
// and build a new one. Continuous parameters are the only mutation
// path; each writes a complete snapshot that the render path picks up
// at a block boundary. Process is the render path: it takes no locks,
// allocates nothing, and yields silence for degenerate input instead of
// failing.
package graph

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync/atomic"

	"github.com/cwbudde/algo-live/analyzer"
	"github.com/cwbudde/algo-live/config"
	"github.com/cwbudde/algo-live/dsp/gate"
)

func errBandIndex(i int) error {
	return fmt.Errorf("graph: eq band index out of range: %d", i)
}

// Stage is one mono processing unit in the chain. Process runs on the
// render path and must not block, lock, or allocate.
type Stage interface {
	Name() string
	Process(block []float64)
}

// Graph is an immutable ordered effect chain from source to sink. The
// chain is mono through the delay stage; the panner fans out to stereo
// and the reverb and analyzer operate on the stereo pair.
type Graph struct {
	sampleRate float64
	blockSize  int

	// Mono chain in fixed stage order. Disabled optional stages are
	// spliced out at build time, never present as no-ops.
	chain []Stage

	pan    *panStage
	reverb *reverbStage // nil when disabled
	tap    *analyzer.Tap

	// Typed handles for hot updates. The control path owns these only
	// through the Set methods below.
	gain     *gainStage
	postGain *gainStage
	driveSt  *driveStage
	comp     *compressorStage // nil when disabled
	eq       [config.BandCount]*eqStage
	delaySt  *delayStage // nil when disabled
	gateSt   *gateStage  // nil when disabled

	scratch []float64
	tapMix  []float64
}

// SampleRate returns the rate the graph was built for.
func (g *Graph) SampleRate() float64 { return g.sampleRate }

// BlockSize returns the block size hint the graph was built for.
func (g *Graph) BlockSize() int { return g.blockSize }

// Tap returns the graph's analyzer tap.
func (g *Graph) Tap() *analyzer.Tap { return g.tap }

// EQResponseDB returns the combined magnitude response of the five EQ
// bands in dB at the given frequencies, for display alongside the
// analyzer spectrum. Flat bands contribute nothing.
func (g *Graph) EQResponseDB(freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	for _, st := range g.eq {
		c := st.coeffs.Load()
		if c == nil {
			continue
		}
		for i, f := range freqs {
			mag := cmplx.Abs(c.Response(f, g.sampleRate))
			out[i] += 20 * math.Log10(math.Max(mag, 1e-12))
		}
	}
	return out
}

// StageNames returns the chain order, including the stereo stages, for
// inspection and tests.
func (g *Graph) StageNames() []string {
	names := make([]string, 0, len(g.chain)+3)
	for _, st := range g.chain {
		names = append(names, st.Name())
	}
	names = append(names, g.pan.Name())
	if g.reverb != nil {
		names = append(names, g.reverb.Name())
	}
	names = append(names, "analyzer")
	return names
}

// Process renders one block: the mono chain in place, then the stereo
// fan-out, reverb, and analyzer tap. Output slices shorter than the
// input truncate the block; an empty input writes silence.
func (g *Graph) Process(in, outL, outR []float64) {
	n := len(in)
	if n > len(g.scratch) {
		n = len(g.scratch)
	}
	if n > len(outL) {
		n = len(outL)
	}
	if n > len(outR) {
		n = len(outR)
	}

	zero(outL)
	zero(outR)
	if n == 0 {
		return
	}

	buf := g.scratch[:n]
	copy(buf, in[:n])

	for _, st := range g.chain {
		st.Process(buf)
	}

	g.pan.Fan(buf, outL[:n], outR[:n])

	if g.reverb != nil {
		g.reverb.Process(outL[:n], outR[:n])
	}

	mix := g.tapMix[:n]
	for i := range mix {
		mix[i] = 0.5 * (outL[i] + outR[i])
	}
	g.tap.Push(mix)
}

// SetGain updates the input gain stage in place.
func (g *Graph) SetGain(v float64) { g.gain.Set(v) }

// SetPostGain updates the post-EQ gain stage in place.
func (g *Graph) SetPostGain(v float64) { g.postGain.Set(v) }

// SetDrive recomputes the waveshaping curve for the new drive amount.
func (g *Graph) SetDrive(amount float64) error { return g.driveSt.shaper.SetDrive(amount) }

// SetPan updates the stereo pan position in place.
func (g *Graph) SetPan(pan float64) { g.pan.Set(pan) }

// SetEQBand redesigns the coefficients of band i from the given
// parameters and installs them atomically.
func (g *Graph) SetEQBand(i int, band config.EQBand) error {
	if i < 0 || i >= len(g.eq) {
		return errBandIndex(i)
	}
	return g.eq[i].SetBand(band)
}

// SetCompressor hands a new parameter snapshot to the compressor stage.
// A no-op when the stage is not part of the graph.
func (g *Graph) SetCompressor(params config.Compressor) {
	if g.comp != nil {
		g.comp.Update(params)
	}
}

// SetDelay hands new time/feedback values to the delay stage. A no-op
// when the stage is not part of the graph.
func (g *Graph) SetDelay(timeSeconds, feedback float64) error {
	if g.delaySt == nil {
		return nil
	}
	return g.delaySt.Set(timeSeconds, feedback)
}

// SetGate hands a new parameter snapshot to the noise gate. A no-op
// when the stage is not part of the graph.
func (g *Graph) SetGate(params gate.Params) error {
	if g.gateSt == nil {
		return nil
	}
	return g.gateSt.ctl.SetParams(params)
}

// SetReverbMix updates the reverb dry/wet balance in place. A no-op
// when the stage is not part of the graph.
func (g *Graph) SetReverbMix(mix float64) {
	if g.reverb != nil {
		g.reverb.SetMix(mix)
	}
}

func zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// atomicFloat stores a float64 as atomic bits so the control path can
// publish single values the render path reads without tearing.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }
func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
