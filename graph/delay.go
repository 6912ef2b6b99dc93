package graph

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-live/config"
)

// maxDelaySeconds bounds the preallocated delay ring. Hot time changes
// move the read offset inside this ring; the buffer itself is never
// reallocated while installed.
const maxDelaySeconds = 2.0

type delayParams struct {
	samples  int
	feedback float64
}

// delayStage is the feedback delay: the delayed signal is summed with
// the input, and the ring is fed the input plus the scaled delayed
// signal. The feedback loop closes only over this stage; with feedback
// clamped below 1 the loop energy is strictly decaying.
type delayStage struct {
	sampleRate float64
	params     atomic.Pointer[delayParams]
	buffer     []float64
	write      int
}

func newDelayStage(sampleRate float64, cfg config.Delay) (*delayStage, error) {
	size := int(math.Ceil(maxDelaySeconds*sampleRate)) + 1
	s := &delayStage{
		sampleRate: sampleRate,
		buffer:     make([]float64, size),
	}
	if err := s.Set(cfg.TimeSeconds, cfg.Feedback); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *delayStage) Name() string { return "delay" }

// Set publishes new time/feedback values as one snapshot.
func (s *delayStage) Set(timeSeconds, feedback float64) error {
	if timeSeconds < 0 || timeSeconds > maxDelaySeconds ||
		math.IsNaN(timeSeconds) || math.IsInf(timeSeconds, 0) {
		return fmt.Errorf("graph: delay time must be in [0, %g]: %f", maxDelaySeconds, timeSeconds)
	}
	if feedback < config.MinFeedback || feedback > config.MaxFeedback ||
		math.IsNaN(feedback) || math.IsInf(feedback, 0) {
		return fmt.Errorf("graph: delay feedback must be in [%g, %g]: %f",
			config.MinFeedback, config.MaxFeedback, feedback)
	}

	samples := int(math.Round(timeSeconds * s.sampleRate))
	if samples < 1 {
		samples = 1
	}
	if samples > len(s.buffer)-1 {
		samples = len(s.buffer) - 1
	}

	s.params.Store(&delayParams{samples: samples, feedback: feedback})
	return nil
}

func (s *delayStage) Process(block []float64) {
	p := s.params.Load()
	size := len(s.buffer)

	for i, x := range block {
		read := s.write - p.samples
		if read < 0 {
			read += size
		}
		delayed := s.buffer[read]

		s.buffer[s.write] = x + delayed*p.feedback
		s.write++
		if s.write >= size {
			s.write = 0
		}

		block[i] = x + delayed
	}
}
