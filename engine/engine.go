// Package engine runs the live audio pipeline: it opens the capture
// and playback streams, builds the effect graph from a configuration
// snapshot, and drives the render loop. All control-path operations
// serialize on one mutex; the render loop itself never takes it.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-live/config"
	"github.com/cwbudde/algo-live/graph"
	"github.com/cwbudde/algo-live/record"
)

// State is the engine lifecycle state.
type State int

const (
	// Stopped is the idle state; no streams are open.
	Stopped State = iota

	// Running means the render loop is live.
	Running

	// Error means a start or mid-stream failure tore the pipeline
	// down; Stop returns the engine to Stopped.
	Error
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrInvalidConfig classifies configuration rejections; it is the
	// config package's sentinel re-exported at the engine boundary.
	ErrInvalidConfig = config.ErrInvalid

	// ErrDeviceUnavailable reports that the capture or playback stream
	// could not be opened.
	ErrDeviceUnavailable = fmt.Errorf("engine: device unavailable")

	// ErrDeviceDisconnected reports a stream failure while running.
	ErrDeviceDisconnected = fmt.Errorf("engine: device disconnected")

	// ErrRebuildFailed reports that the effect graph could not be built
	// from the configuration.
	ErrRebuildFailed = fmt.Errorf("engine: graph rebuild failed")

	// ErrNotRunning reports an operation that requires the Running state.
	ErrNotRunning = fmt.Errorf("engine: not running")
)

// DefaultSettleDelay is the pause between stop and start during a
// restart, giving the platform backend time to release the streams.
const DefaultSettleDelay = 50 * time.Millisecond

// Options configures optional engine collaborators.
type Options struct {
	// Store receives finished recordings; nil disables recording.
	Store record.Store

	// Logger receives control-path events; nil selects slog.Default().
	Logger *slog.Logger

	// SettleDelay overrides DefaultSettleDelay; zero keeps the default.
	SettleDelay time.Duration
}

// Engine owns the capture→graph→playback pipeline.
type Engine struct {
	device      Device
	store       record.Store
	log         *slog.Logger
	settleDelay time.Duration

	// gen invalidates in-flight starts: Stop bumps it, and any start
	// result carrying an older value is discarded with its streams.
	gen atomic.Uint64

	installed atomic.Pointer[graph.Graph]

	mu         sync.Mutex
	state      State
	lastErr    error
	cfg        config.Config
	renderRate float64
	source     Source
	sink       Sink
	stopCh     chan struct{}
	listener   func(State)
	wg         sync.WaitGroup

	chunks chan chunk
	quit   chan struct{}

	rec recorder
}

// New creates a stopped engine bound to the given device backend.
func New(device Device, opts Options) (*Engine, error) {
	if device == nil {
		return nil, fmt.Errorf("engine: device must not be nil")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	settle := opts.SettleDelay
	if settle == 0 {
		settle = DefaultSettleDelay
	}

	e := &Engine{
		device:      device,
		store:       opts.Store,
		log:         log,
		settleDelay: settle,
		cfg:         config.Default(),
		chunks:      make(chan chunk, chunkQueueDepth),
		quit:        make(chan struct{}),
	}
	go e.consumeChunks()
	return e, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the failure that moved the engine into the Error state.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Config returns the last accepted configuration snapshot.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetStateListener registers fn to be called after every state
// transition. The call happens outside the engine lock but possibly on
// the render goroutine; fn must not call back into the engine
// synchronously.
func (e *Engine) SetStateListener(fn func(State)) {
	e.mu.Lock()
	e.listener = fn
	e.mu.Unlock()
}

// Start validates cfg, opens the streams, builds the graph, and spawns
// the render loop. A Stop overlapping a slow device open wins: the late
// streams are closed and the start is discarded.
func (e *Engine) Start(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.state == Running {
		e.mu.Unlock()
		return fmt.Errorf("engine: already running")
	}
	gen := e.gen.Add(1)
	e.cfg = cfg
	e.mu.Unlock()

	// The open calls may block; they run outside the lock so Stop stays
	// callable mid-start.
	src, err := e.device.OpenSource(cfg.DeviceID, CaptureOptions{})
	if err != nil {
		return e.startFailed(gen, fmt.Errorf("%w: open source: %v", ErrDeviceUnavailable, err))
	}
	if e.stale(gen) {
		src.Close()
		e.log.Info("discarding stale start", "stage", "source")
		return nil
	}

	snk, err := e.device.OpenSink(cfg.OutputID)
	if err != nil {
		src.Close()
		return e.startFailed(gen, fmt.Errorf("%w: open sink: %v", ErrDeviceUnavailable, err))
	}
	if e.stale(gen) {
		snk.Close()
		src.Close()
		e.log.Info("discarding stale start", "stage", "sink")
		return nil
	}

	rate := src.SampleRate()
	g, err := graph.Builder{}.Build(cfg, rate)
	if err != nil {
		snk.Close()
		src.Close()
		err = fmt.Errorf("%w: %v", ErrRebuildFailed, err)
		e.log.Error("start failed", "err", err)
		// A rebuild failure is a configuration problem, not a device
		// fault; the engine stays cleanly stopped.
		return err
	}

	e.mu.Lock()
	if e.gen.Load() != gen {
		e.mu.Unlock()
		snk.Close()
		src.Close()
		e.log.Info("discarding stale start", "stage", "install")
		return nil
	}

	e.source = src
	e.sink = snk
	e.renderRate = rate
	e.stopCh = make(chan struct{})
	e.state = Running
	e.lastErr = nil
	e.installed.Store(g)

	free := newChunkPool(cfg.BlockSize)
	e.wg.Add(1)
	go e.renderLoop(gen, src, snk, g, e.stopCh, free)
	listener := e.listener
	e.mu.Unlock()

	e.log.Info("engine started",
		"sampleRate", rate,
		"blockSize", cfg.BlockSize,
		"stages", g.StageNames())
	notify(listener, Running)
	return nil
}

// Stop tears the pipeline down in reverse acquisition order. It is
// idempotent and callable from any state, including while a Start is
// still blocked inside the device backend.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.gen.Add(1)
	prev := e.state
	src, snk, stopCh := e.source, e.sink, e.stopCh
	e.source, e.sink, e.stopCh = nil, nil, nil
	e.state = Stopped
	e.lastErr = nil
	listener := e.listener
	e.mu.Unlock()

	e.installed.Store(nil)
	if stopCh != nil {
		close(stopCh)
	}
	if snk != nil {
		snk.Close()
	}
	if src != nil {
		src.Close()
	}
	e.wg.Wait()

	if prev != Stopped {
		e.log.Info("engine stopped", "from", prev.String())
		notify(listener, Stopped)
	}
}

// Restart performs stop, settle delay, start with the current
// configuration. Legal only while running.
func (e *Engine) Restart() error {
	e.mu.Lock()
	if e.state != Running {
		e.mu.Unlock()
		return ErrNotRunning
	}
	cfg := e.cfg
	e.mu.Unlock()

	e.Stop()
	time.Sleep(e.settleDelay)
	return e.Start(cfg)
}

// Apply validates and takes over cfg. While running, hot-only deltas
// are written into the live graph with no dropout; any structural delta
// triggers a full restart on the new configuration. On a stopped
// engine the snapshot is stored for the next Start.
func (e *Engine) Apply(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.state != Running {
		e.cfg = cfg
		e.mu.Unlock()
		return nil
	}

	changes := config.Diff(e.cfg, cfg)
	if len(changes) == 0 {
		e.mu.Unlock()
		return nil
	}

	if config.AnyStructural(changes) {
		e.cfg = cfg
		e.mu.Unlock()
		e.log.Info("structural change, rebuilding", "changes", changeFields(changes))
		return e.Restart()
	}

	g := e.installed.Load()
	if g == nil {
		e.mu.Unlock()
		return ErrNotRunning
	}
	err := applyHot(g, cfg)
	if err == nil {
		e.cfg = cfg
	}
	e.mu.Unlock()

	if err != nil {
		e.log.Error("hot update failed", "err", err)
		return err
	}
	e.log.Info("hot update applied", "changes", changeFields(changes))
	return nil
}

// Close stops the engine and releases the background consumer. The
// engine cannot be started again afterwards.
func (e *Engine) Close() {
	e.Stop()
	close(e.quit)
}

func (e *Engine) stale(gen uint64) bool {
	return e.gen.Load() != gen
}

func (e *Engine) startFailed(gen uint64, err error) error {
	e.mu.Lock()
	if e.gen.Load() != gen {
		e.mu.Unlock()
		e.log.Info("discarding stale start failure", "err", err)
		return nil
	}
	e.state = Error
	e.lastErr = err
	listener := e.listener
	e.mu.Unlock()

	e.log.Error("start failed", "err", err)
	notify(listener, Error)
	return err
}

func applyHot(g *graph.Graph, cfg config.Config) error {
	g.SetGain(cfg.Gain)
	g.SetPostGain(cfg.PostGain)
	g.SetPan(cfg.Pan)
	g.SetCompressor(cfg.Compressor)
	g.SetReverbMix(cfg.Reverb.Mix)

	if err := g.SetDrive(cfg.Drive); err != nil {
		return err
	}
	for i, band := range cfg.Bands {
		if err := g.SetEQBand(i, band); err != nil {
			return err
		}
	}
	if err := g.SetDelay(cfg.Delay.TimeSeconds, cfg.Delay.Feedback); err != nil {
		return err
	}
	return g.SetGate(gateParams(cfg.Gate))
}

func changeFields(changes []config.Change) []string {
	fields := make([]string, len(changes))
	for i, ch := range changes {
		fields[i] = ch.Field
	}
	return fields
}

func notify(listener func(State), s State) {
	if listener != nil {
		listener(s)
	}
}
