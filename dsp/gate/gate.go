// Package gate implements the noise gate's block-rate envelope follower.
//
// The controller runs on the render path, once per audio block. The
// control path publishes complete parameter snapshots through an atomic
// pointer; the render path reads the latest snapshot at each block
// boundary and never observes a torn write. The only retained state is
// the current gate gain.
package gate

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// attackTau is the fast time constant used while the signal is above
// the threshold, in seconds.
const attackTau = 0.01

// Params is one immutable gate parameter snapshot.
type Params struct {
	ThresholdDB    float64
	ReleaseSeconds float64
}

// Validate checks the snapshot ranges.
func (p Params) Validate() error {
	if math.IsNaN(p.ThresholdDB) || math.IsInf(p.ThresholdDB, 0) {
		return fmt.Errorf("gate threshold must be finite: %f", p.ThresholdDB)
	}
	if p.ReleaseSeconds <= 0 || math.IsNaN(p.ReleaseSeconds) || math.IsInf(p.ReleaseSeconds, 0) {
		return fmt.Errorf("gate release must be > 0: %f", p.ReleaseSeconds)
	}
	return nil
}

// Controller is the block-rate gate gain loop.
type Controller struct {
	sampleRate float64
	params     atomic.Pointer[Params]
	gain       float64
}

// NewController creates a gate controller with the gate fully open.
func NewController(sampleRate float64, p Params) (*Controller, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("gate sample rate must be positive and finite: %f", sampleRate)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{sampleRate: sampleRate, gain: 1}
	c.params.Store(&p)
	return c, nil
}

// SetParams publishes a new parameter snapshot. Safe to call from the
// control path while ProcessBlock runs on the render path.
func (c *Controller) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.params.Store(&p)
	return nil
}

// Params returns the latest published snapshot.
func (c *Controller) Params() Params {
	return *c.params.Load()
}

// Gain returns the current gate gain in [0, 1].
func (c *Controller) Gain() float64 {
	return c.gain
}

// ProcessBlock updates the gate gain from the block's RMS level and
// applies it as a multiplicative envelope. An empty block leaves the
// gain untouched.
func (c *Controller) ProcessBlock(block []float64) {
	if len(block) == 0 {
		return
	}

	p := c.params.Load()

	sum := 0.0
	for _, v := range block {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(block)))

	target := 0.0
	tau := p.ReleaseSeconds
	if rms > core.DBToLinear(p.ThresholdDB) {
		target = 1
		tau = attackTau
	}

	// Exponential approach toward the target, evaluated once per block
	// with the block duration as the elapsed time.
	t := float64(len(block)) / c.sampleRate
	c.gain = target + (c.gain-target)*math.Exp(-t/tau)

	for i := range block {
		block[i] *= c.gain
	}
}

// Reset reopens the gate.
func (c *Controller) Reset() {
	c.gain = 1
}
