package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-live/record"
)

// recordingMagic tags stored blobs: 4 magic bytes, the sample rate as
// float64 bits, then interleaved stereo float64 samples, all little
// endian.
var recordingMagic = [4]byte{'A', 'L', 'R', '1'}

// recorder accumulates render chunks between StartRecording and
// StopRecording. The chunk consumer and the control path both touch it,
// under its own lock so recording never contends with the engine lock.
type recorder struct {
	mu      sync.Mutex
	active  bool
	rate    float64
	samples []float64
}

// ErrNoStore reports a recording call on an engine built without a
// record.Store.
var ErrNoStore = fmt.Errorf("engine: no recording store configured")

// ErrNotRecording reports StopRecording without a matching start.
var ErrNotRecording = fmt.Errorf("engine: not recording")

// StartRecording begins capturing the rendered output. Requires a
// configured store and the Running state.
func (e *Engine) StartRecording() error {
	if e.store == nil {
		return ErrNoStore
	}

	e.mu.Lock()
	if e.state != Running {
		e.mu.Unlock()
		return ErrNotRunning
	}
	rate := e.renderRate
	e.mu.Unlock()

	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	if e.rec.active {
		return fmt.Errorf("engine: already recording")
	}
	e.rec.active = true
	e.rec.rate = rate
	e.rec.samples = e.rec.samples[:0]

	e.log.Info("recording started", "sampleRate", rate)
	return nil
}

// StopRecording finalizes the take and appends it to the store.
func (e *Engine) StopRecording() (record.ID, error) {
	if e.store == nil {
		return "", ErrNoStore
	}

	e.rec.mu.Lock()
	if !e.rec.active {
		e.rec.mu.Unlock()
		return "", ErrNotRecording
	}
	e.rec.active = false
	rate := e.rec.rate
	samples := e.rec.samples
	e.rec.samples = nil
	e.rec.mu.Unlock()

	id, err := e.store.Append(encodeRecording(rate, samples))
	if err != nil {
		return "", fmt.Errorf("engine: store recording: %w", err)
	}
	e.log.Info("recording stored", "id", string(id), "samples", len(samples))
	return id, nil
}

// consumeChunks drains the render feed for the engine's lifetime,
// returning each buffer to its pool after use.
func (e *Engine) consumeChunks() {
	for {
		select {
		case c := <-e.chunks:
			e.rec.mu.Lock()
			if e.rec.active {
				e.rec.samples = append(e.rec.samples, c.samples...)
			}
			e.rec.mu.Unlock()

			select {
			case c.free <- c.samples[:cap(c.samples)]:
			default:
			}
		case <-e.quit:
			return
		}
	}
}

func encodeRecording(rate float64, samples []float64) []byte {
	blob := make([]byte, 0, len(recordingMagic)+8+len(samples)*8)
	blob = append(blob, recordingMagic[:]...)
	blob = binary.LittleEndian.AppendUint64(blob, math.Float64bits(rate))
	for _, v := range samples {
		blob = binary.LittleEndian.AppendUint64(blob, math.Float64bits(v))
	}
	return blob
}
