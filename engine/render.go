package engine

import (
	"fmt"

	"github.com/cwbudde/algo-live/config"
	"github.com/cwbudde/algo-live/dsp/gate"
	"github.com/cwbudde/algo-live/graph"
)

// chunkQueueDepth bounds the recorder feed; when the consumer lags the
// render loop drops chunks instead of blocking.
const chunkQueueDepth = 8

// chunkPoolSize is the number of preallocated recorder buffers per run.
const chunkPoolSize = 8

// chunk carries one interleaved stereo block to the recorder consumer
// together with the free list its buffer returns to.
type chunk struct {
	samples []float64
	free    chan []float64
}

func newChunkPool(blockSize int) chan []float64 {
	free := make(chan []float64, chunkPoolSize)
	for i := 0; i < chunkPoolSize; i++ {
		free <- make([]float64, 2*blockSize)
	}
	return free
}

// renderLoop is the audio thread: read a block, run the graph, write
// the stereo pair, feed the recorder. It exits on stop, or on a stream
// error after reporting the failure.
func (e *Engine) renderLoop(gen uint64, src Source, snk Sink, g *graph.Graph, stop chan struct{}, free chan []float64) {
	defer e.wg.Done()

	blockSize := g.BlockSize()
	in := make([]float64, blockSize)
	outL := make([]float64, blockSize)
	outR := make([]float64, blockSize)

	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := src.ReadBlock(in)
		if err != nil {
			e.fail(gen, stop, fmt.Errorf("%w: read: %v", ErrDeviceDisconnected, err))
			return
		}
		if n == 0 {
			// A starved capture yields a full block of silence.
			for i := range in {
				in[i] = 0
			}
			n = blockSize
		}

		g.Process(in[:n], outL[:n], outR[:n])

		if err := snk.WriteBlock(outL[:n], outR[:n]); err != nil {
			e.fail(gen, stop, fmt.Errorf("%w: write: %v", ErrDeviceDisconnected, err))
			return
		}

		e.feedRecorder(outL[:n], outR[:n], free)
	}
}

// feedRecorder hands the stereo block to the consumer without ever
// blocking: no free buffer or a full queue just drops the chunk.
func (e *Engine) feedRecorder(outL, outR []float64, free chan []float64) {
	var buf []float64
	select {
	case buf = <-free:
	default:
		return
	}

	n := len(outL)
	buf = buf[:2*n]
	for i := 0; i < n; i++ {
		buf[2*i] = outL[i]
		buf[2*i+1] = outR[i]
	}

	select {
	case e.chunks <- chunk{samples: buf, free: free}:
	default:
		free <- buf
	}
}

// fail reports a mid-stream failure. A concurrent Stop wins: if the
// generation moved on, the failure belongs to a torn-down run and is
// logged but otherwise discarded.
func (e *Engine) fail(gen uint64, stop chan struct{}, err error) {
	select {
	case <-stop:
		return
	default:
	}

	e.mu.Lock()
	if e.gen.Load() != gen {
		e.mu.Unlock()
		e.log.Debug("stream error after stop", "err", err)
		return
	}
	e.state = Error
	e.lastErr = err
	src, snk := e.source, e.sink
	e.source, e.sink, e.stopCh = nil, nil, nil
	listener := e.listener
	e.mu.Unlock()

	e.installed.Store(nil)
	if snk != nil {
		snk.Close()
	}
	if src != nil {
		src.Close()
	}

	e.log.Error("render loop failed", "err", err)
	notify(listener, Error)
}

func gateParams(cfg config.Gate) gate.Params {
	return gate.Params{
		ThresholdDB:    cfg.ThresholdDB,
		ReleaseSeconds: cfg.ReleaseSeconds,
	}
}
