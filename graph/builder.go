package graph

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-live/analyzer"
	"github.com/cwbudde/algo-live/config"
)

// Builder assembles a Graph from one configuration snapshot. The stage
// order is fixed:
//
//	source → [noiseGate] → gain → drive → [compressor] →
//	eq.sub → eq.bass → eq.mid → eq.upperMid → eq.treble →
//	postGain → [delay] → panner → [reverb] → analyzer → sink
//
// Optional stages in brackets appear only when enabled; a disabled
// stage is spliced out of the chain entirely rather than kept as a
// no-op. There is no incremental patching: every structural change
// builds a fresh graph and the previous one is discarded whole.
type Builder struct {
	// FFTSize overrides the analyzer resolution; 0 selects the default.
	FFTSize int
}

// Build creates a new graph. A build error leaves no partially wired
// graph behind; the returned graph is complete and ready to install.
func (b Builder) Build(cfg config.Config, sampleRate float64) (*Graph, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("graph: sample rate must be positive and finite: %f", sampleRate)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}

	g := &Graph{
		sampleRate: sampleRate,
		blockSize:  cfg.BlockSize,
		scratch:    make([]float64, cfg.BlockSize),
		tapMix:     make([]float64, cfg.BlockSize),
	}

	if cfg.Gate.Enabled {
		st, err := newGateStage(sampleRate, cfg.Gate)
		if err != nil {
			return nil, err
		}
		g.gateSt = st
		g.chain = append(g.chain, st)
	}

	g.gain = newGainStage("gain", cfg.Gain)
	g.chain = append(g.chain, g.gain)

	driveSt, err := newDriveStage(cfg.Drive)
	if err != nil {
		return nil, err
	}
	g.driveSt = driveSt
	g.chain = append(g.chain, driveSt)

	if cfg.Compressor.Enabled {
		st, err := newCompressorStage(sampleRate, cfg.Compressor)
		if err != nil {
			return nil, err
		}
		g.comp = st
		g.chain = append(g.chain, st)
	}

	for i, band := range cfg.Bands {
		st, err := newEQStage(sampleRate, band)
		if err != nil {
			return nil, err
		}
		g.eq[i] = st
		g.chain = append(g.chain, st)
	}

	g.postGain = newGainStage("postGain", cfg.PostGain)
	g.chain = append(g.chain, g.postGain)

	if cfg.Delay.Enabled {
		st, err := newDelayStage(sampleRate, cfg.Delay)
		if err != nil {
			return nil, err
		}
		g.delaySt = st
		g.chain = append(g.chain, st)
	}

	g.pan = newPanStage(cfg.Pan)

	if cfg.Reverb.Enabled {
		st, err := newReverbStage(sampleRate, cfg.Reverb)
		if err != nil {
			return nil, err
		}
		g.reverb = st
	}

	tap, err := analyzer.NewTap(sampleRate, b.FFTSize)
	if err != nil {
		return nil, err
	}
	g.tap = tap

	return g, nil
}
