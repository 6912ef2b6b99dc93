// Package analyzer provides the frequency-domain tap of the render
// chain.
//
// The render path only writes raw samples into a ring buffer guarded by
// a sequence counter; all FFT work happens on the consumer's thread when
// a snapshot is pulled. This keeps the deadline-bound path free of
// locks, allocation, and transform cost, and lets the visualization
// consumer run at display rate independent of the audio block rate.
package analyzer

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// DefaultFFTSize is the default analysis resolution.
	DefaultFFTSize = 2048

	// MinDB is the snapshot noise floor in dBFS.
	MinDB = -130.0

	// snapshotRetries bounds seqlock retry attempts before accepting a
	// possibly mixed frame; a rare stale bin is harmless for display.
	snapshotRetries = 4
)

// Snapshot is one frequency-domain frame. MagnitudesDB holds fftSize/2+1
// bins from DC to Nyquist; bin k is centered at k*BinHz.
type Snapshot struct {
	SampleRate   float64
	BinHz        float64
	MagnitudesDB []float64
}

// Tap accumulates render-path samples and produces pull-based snapshots.
type Tap struct {
	sampleRate float64
	fftSize    int

	// Single-writer ring. version is even between writes; a reader that
	// sees an odd or changed version retries its copy.
	ring    []float64
	write   int
	filled  atomic.Bool
	version atomic.Uint64

	// Consumer-side transform state, shared by all snapshot callers.
	mu         sync.Mutex
	plan       *algofft.Plan[complex128]
	win        []float64
	winGain    float64
	timeBuf    []float64
	windowed   []float64
	complexIn  []complex128
	complexOut []complex128
}

// NewTap creates an analyzer tap. fftSize must be a power of two; 0
// selects DefaultFFTSize.
func NewTap(sampleRate float64, fftSize int) (*Tap, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("analyzer: sample rate must be positive and finite: %f", sampleRate)
	}
	if fftSize == 0 {
		fftSize = DefaultFFTSize
	}
	if fftSize < 64 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("analyzer: fft size must be a power of two >= 64: %d", fftSize)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer: fft plan: %w", err)
	}

	win := window.Generate(window.TypeHann, fftSize, window.WithPeriodic())
	sum := 0.0
	for _, w := range win {
		sum += w
	}

	return &Tap{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		ring:       make([]float64, fftSize),
		plan:       plan,
		win:        win,
		winGain:    sum / float64(fftSize),
		timeBuf:    make([]float64, fftSize),
		windowed:   make([]float64, fftSize),
		complexIn:  make([]complex128, fftSize),
		complexOut: make([]complex128, fftSize),
	}, nil
}

// FFTSize returns the analysis resolution.
func (t *Tap) FFTSize() int { return t.fftSize }

// Push appends one block of samples to the ring. Render path: no locks,
// no allocation.
func (t *Tap) Push(block []float64) {
	if len(block) == 0 {
		return
	}

	t.version.Add(1)
	for _, v := range block {
		t.ring[t.write] = v
		t.write++
		if t.write >= t.fftSize {
			t.write = 0
			t.filled.Store(true)
		}
	}
	t.version.Add(1)
}

// Snapshot computes the latest frequency-domain frame. It returns false
// until a full FFT window of samples has been pushed. Safe for
// concurrent callers; each call allocates only the returned bins.
func (t *Tap) Snapshot() (Snapshot, bool) {
	if !t.filled.Load() {
		return Snapshot{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.copyRing(t.timeBuf)

	vecmath.MulBlock(t.windowed, t.timeBuf, t.win)
	for i, v := range t.windowed {
		t.complexIn[i] = complex(v, 0)
	}
	if err := t.plan.Forward(t.complexOut, t.complexIn); err != nil {
		return Snapshot{}, false
	}

	bins := t.fftSize/2 + 1
	mags := spectrum.Magnitude(t.complexOut[:bins])

	norm := float64(t.fftSize) * math.Max(t.winGain, 1e-12)
	out := make([]float64, bins)
	for k, mag := range mags {
		mag /= norm
		if k > 0 && k < bins-1 {
			mag *= 2
		}
		db := 20 * math.Log10(math.Max(1e-12, mag))
		if db < MinDB {
			db = MinDB
		}
		out[k] = db
	}

	return Snapshot{
		SampleRate:   t.sampleRate,
		BinHz:        t.sampleRate / float64(t.fftSize),
		MagnitudesDB: out,
	}, true
}

// copyRing copies the ring in chronological order, retrying if the
// writer advanced mid-copy.
func (t *Tap) copyRing(dst []float64) {
	for attempt := 0; ; attempt++ {
		v1 := t.version.Load()
		if v1&1 == 1 && attempt < snapshotRetries {
			continue
		}

		write := t.write
		n := copy(dst, t.ring[write:])
		copy(dst[n:], t.ring[:write])

		if t.version.Load() == v1 || attempt >= snapshotRetries {
			return
		}
	}
}
