package drive

import (
	"sync/atomic"
)

// oversampleFactor is the number of sub-samples evaluated per input
// sample to reduce waveshaping aliasing.
const oversampleFactor = 4

// Shaper applies a drive transfer curve to blocks of samples with 4x
// oversampling. SetDrive may be called from a control goroutine while
// Process runs on the render path: the table is swapped atomically and
// never mutated in place.
type Shaper struct {
	table atomic.Pointer[[]float64]
	prev  float64
}

// NewShaper creates a shaper at the given drive amount.
func NewShaper(driveAmount float64) (*Shaper, error) {
	s := &Shaper{}
	if err := s.SetDrive(driveAmount); err != nil {
		return nil, err
	}
	return s, nil
}

// SetDrive recomputes and installs the transfer table. A drive of zero
// installs no table; the shaper then passes samples through unchanged.
func (s *Shaper) SetDrive(driveAmount float64) error {
	if driveAmount == 0 {
		s.table.Store(nil)
		return nil
	}
	curve, err := Curve(driveAmount, DefaultTableSize)
	if err != nil {
		return err
	}
	s.table.Store(&curve)
	return nil
}

// Process shapes the block in place.
func (s *Shaper) Process(block []float64) {
	tp := s.table.Load()
	if tp == nil {
		if len(block) > 0 {
			s.prev = block[len(block)-1]
		}
		return
	}
	table := *tp

	prev := s.prev
	for i, x := range block {
		sum := 0.0
		for sub := 1; sub <= oversampleFactor; sub++ {
			t := float64(sub) / oversampleFactor
			sum += lookup(table, prev+(x-prev)*t)
		}
		block[i] = sum / oversampleFactor
		prev = x
	}
	s.prev = prev
}

// Reset clears the oversampling history.
func (s *Shaper) Reset() {
	s.prev = 0
}

// lookup maps x in [-1, 1] onto the table with linear interpolation.
// Out-of-range input is clamped to the table edges.
func lookup(table []float64, x float64) float64 {
	if x <= -1 {
		return table[0]
	}
	if x >= 1 {
		return table[len(table)-1]
	}

	pos := (x + 1) / 2 * float64(len(table)-1)
	idx := int(pos)
	if idx >= len(table)-1 {
		return table[len(table)-1]
	}
	frac := pos - float64(idx)
	return table[idx] + frac*(table[idx+1]-table[idx])
}
