package gate

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-live/internal/testutil"
)

const (
	testSampleRate = 48000.0
	testBlockSize  = 256
)

func defaultParams() Params {
	return Params{ThresholdDB: -50, ReleaseSeconds: 0.2}
}

func TestNewControllerValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		params     Params
		wantErr    bool
	}{
		{"valid", testSampleRate, defaultParams(), false},
		{"zero sample rate", 0, defaultParams(), true},
		{"NaN sample rate", math.NaN(), defaultParams(), true},
		{"zero release", testSampleRate, Params{ThresholdDB: -50}, true},
		{"infinite threshold", testSampleRate, Params{ThresholdDB: math.Inf(1), ReleaseSeconds: 0.2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewController(tt.sampleRate, tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewController() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestGateClosesOnSilence drives the gate with sustained sub-threshold
// signal and verifies the gain decays toward zero with the release time
// constant.
func TestGateClosesOnSilence(t *testing.T) {
	c, err := NewController(testSampleRate, defaultParams())
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	// -80 dBFS noise is far below the -50 dB threshold.
	quiet := testutil.Noise(1, 1e-4, testBlockSize)

	// Five release constants of sub-threshold input: gain must fall
	// below e^-5.
	blocks := int(5 * defaultParams().ReleaseSeconds * testSampleRate / testBlockSize)
	for i := 0; i < blocks; i++ {
		block := append([]float64(nil), quiet...)
		c.ProcessBlock(block)
	}

	if g := c.Gain(); g > 0.01 {
		t.Errorf("gain after sustained silence = %v, want <= 0.01", g)
	}
}

// TestGateOpensOnSignal verifies the gain exceeds 0.99 within roughly
// five attack constants once the signal rises above the threshold.
func TestGateOpensOnSignal(t *testing.T) {
	c, err := NewController(testSampleRate, defaultParams())
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	// Close the gate first.
	for i := 0; i < 400; i++ {
		c.ProcessBlock(testutil.Silence(testBlockSize))
	}
	if g := c.Gain(); g > 0.05 {
		t.Fatalf("setup: gain = %v, want near 0", g)
	}

	loud := testutil.Sine(440, testSampleRate, 0.5, testBlockSize)
	blocks := int(math.Ceil(5 * attackTau * testSampleRate / testBlockSize))
	for i := 0; i < blocks; i++ {
		block := append([]float64(nil), loud...)
		c.ProcessBlock(block)
	}

	if g := c.Gain(); g < 0.99 {
		t.Errorf("gain after loud signal = %v, want >= 0.99", g)
	}
}

func TestGateAppliesGainMultiplicatively(t *testing.T) {
	c, err := NewController(testSampleRate, defaultParams())
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	in := testutil.Sine(440, testSampleRate, 0.5, testBlockSize)
	block := append([]float64(nil), in...)
	c.ProcessBlock(block)

	g := c.Gain()
	for i := range block {
		want := in[i] * g
		if math.Abs(block[i]-want) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, block[i], want)
		}
	}
}

func TestGateEmptyBlockIsNoOp(t *testing.T) {
	c, err := NewController(testSampleRate, defaultParams())
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	before := c.Gain()
	c.ProcessBlock(nil)
	if c.Gain() != before {
		t.Errorf("gain changed on empty block: %v -> %v", before, c.Gain())
	}
}

func TestGateHotParameterSwap(t *testing.T) {
	c, err := NewController(testSampleRate, defaultParams())
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	next := Params{ThresholdDB: -20, ReleaseSeconds: 0.05}
	if err := c.SetParams(next); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	if got := c.Params(); got != next {
		t.Errorf("Params() = %+v, want %+v", got, next)
	}

	// -30 dBFS sine is now below the raised threshold: gate closes.
	quiet := testutil.Sine(440, testSampleRate, 0.03, testBlockSize)
	for i := 0; i < 200; i++ {
		block := append([]float64(nil), quiet...)
		c.ProcessBlock(block)
	}
	if g := c.Gain(); g > 0.01 {
		t.Errorf("gain = %v, want <= 0.01 after threshold raise", g)
	}

	if err := c.SetParams(Params{ReleaseSeconds: 0}); err == nil {
		t.Error("SetParams() accepted zero release")
	}
}
