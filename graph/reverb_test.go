package graph

import (
	"testing"

	"github.com/cwbudde/algo-live/config"
	"github.com/cwbudde/algo-live/internal/testutil"
)

// A small rate keeps the synthesized impulse short for tests.
const reverbTestRate = 8000.0

func TestReverbMixZeroMatchesBypass(t *testing.T) {
	cfg := config.Default()
	cfg.Reverb = config.Reverb{Enabled: true, Mix: 0}

	withReverb, err := Builder{}.Build(cfg, reverbTestRate)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cfg.Reverb.Enabled = false
	bypass, err := Builder{}.Build(cfg, reverbTestRate)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	in := testutil.Noise(11, 0.5, cfg.BlockSize)
	aL := make([]float64, cfg.BlockSize)
	aR := make([]float64, cfg.BlockSize)
	bL := make([]float64, cfg.BlockSize)
	bR := make([]float64, cfg.BlockSize)

	for block := 0; block < 8; block++ {
		withReverb.Process(in, aL, aR)
		bypass.Process(in, bL, bR)
		testutil.RequireSliceNearlyEqual(t, aL, bL, 1e-12)
		testutil.RequireSliceNearlyEqual(t, aR, bR, 1e-12)
	}
}

func TestReverbFullWetDropsDrySignal(t *testing.T) {
	cfg := config.Default()
	cfg.Reverb = config.Reverb{Enabled: true, Mix: 1}

	g, err := Builder{}.Build(cfg, reverbTestRate)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// The convolution engine buffers one partition before the wet tail
	// arrives, so the first blocks of a fully wet render carry no dry
	// impulse at sample zero.
	in := testutil.Impulse(cfg.BlockSize, 0)
	outL := make([]float64, cfg.BlockSize)
	outR := make([]float64, cfg.BlockSize)
	g.Process(in, outL, outR)

	if got := outL[0]; got == 1 {
		t.Fatal("fully wet output still carries the dry impulse")
	}

	// The wet tail must show up once the convolution latency elapses.
	silent := testutil.Silence(cfg.BlockSize)
	energy := 0.0
	for block := 0; block < 16; block++ {
		g.Process(silent, outL, outR)
		energy += testutil.MaxAbs(outL) + testutil.MaxAbs(outR)
	}
	if energy == 0 {
		t.Fatal("fully wet render produced no tail energy")
	}
	testutil.RequireFinite(t, outL)
	testutil.RequireFinite(t, outR)
}

func TestReverbHotMixUpdate(t *testing.T) {
	cfg := config.Default()
	cfg.Reverb = config.Reverb{Enabled: true, Mix: 0.5}

	g, err := Builder{}.Build(cfg, reverbTestRate)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	g.SetReverbMix(0)
	in := testutil.Noise(3, 0.5, cfg.BlockSize)
	outL := make([]float64, cfg.BlockSize)
	outR := make([]float64, cfg.BlockSize)
	g.Process(in, outL, outR)

	// Mix zero after the update: the stereo pair is the dry signal.
	testutil.RequireSliceNearlyEqual(t, outL, in, 1e-12)
	testutil.RequireSliceNearlyEqual(t, outR, in, 1e-12)
}
