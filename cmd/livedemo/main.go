// Command livedemo runs the live effect engine against a synthetic
// capture source and prints analyzer snapshots while it plays.
//
// Usage:
//
//	livedemo [flags]
//
// Examples:
//
//	livedemo -duration 5s
//	livedemo -gain 2 -drive 0.4 -reverb 0.3
//	livedemo -delay -gate -record -log livedemo.log
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cwbudde/algo-live/config"
	"github.com/cwbudde/algo-live/engine"
	"github.com/cwbudde/algo-live/record"
)

const sampleRate = 48000.0

func main() {
	duration := flag.Duration("duration", 3*time.Second, "how long to run the engine")
	gain := flag.Float64("gain", 1.0, "input gain")
	drive := flag.Float64("drive", 0.0, "waveshaper drive in [0,1]")
	pan := flag.Float64("pan", 0.0, "stereo pan in [-1,1]")
	reverbMix := flag.Float64("reverb", 0.0, "reverb wet mix in [0,1]; 0 disables the stage")
	withDelay := flag.Bool("delay", false, "enable the feedback delay")
	withGate := flag.Bool("gate", false, "enable the noise gate")
	withComp := flag.Bool("comp", false, "enable the compressor")
	doRecord := flag.Bool("record", false, "record the run into the in-memory store")
	logFile := flag.String("log", "", "log file path with rotation; empty logs to stderr")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: livedemo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the effect engine on a synthetic tone + noise source.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log := buildLogger(*logFile)

	cfg := config.Default()
	cfg.Gain = *gain
	cfg.Drive = *drive
	cfg.Pan = *pan
	cfg.Delay.Enabled = *withDelay
	cfg.Gate.Enabled = *withGate
	cfg.Compressor.Enabled = *withComp
	if *reverbMix > 0 {
		cfg.Reverb.Enabled = true
		cfg.Reverb.Mix = *reverbMix
	}

	store := record.NewMemoryStore()
	eng, err := engine.New(&synthDevice{}, engine.Options{
		Store:  store,
		Logger: log,
	})
	if err != nil {
		fail(log, "create engine", err)
	}
	defer eng.Close()

	if err := eng.Start(cfg); err != nil {
		fail(log, "start engine", err)
	}

	if *doRecord {
		if err := eng.StartRecording(); err != nil {
			fail(log, "start recording", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-ctx.Done()
		return nil
	})
	group.Go(func() error {
		return printSpectra(ctx, eng)
	})
	if err := group.Wait(); err != nil {
		fail(log, "run", err)
	}

	if *doRecord {
		id, err := eng.StopRecording()
		if err != nil {
			fail(log, "stop recording", err)
		}
		if blob, err := store.Get(id); err == nil {
			fmt.Printf("recording %s: %d bytes\n", id, len(blob))
		}
	}

	eng.Stop()
}

func buildLogger(path string) *slog.Logger {
	if path == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}, nil))
}

func fail(log *slog.Logger, what string, err error) {
	log.Error(what, "err", err)
	fmt.Fprintf(os.Stderr, "livedemo: %s: %v\n", what, err)
	os.Exit(1)
}

// printSpectra polls the analyzer at display rate and prints the
// loudest bins per snapshot.
func printSpectra(ctx context.Context, eng *engine.Engine) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		snap, ok := eng.Snapshot()
		if !ok {
			continue
		}

		type peak struct {
			freq float64
			db   float64
		}
		peaks := make([]peak, 0, len(snap.MagnitudesDB))
		for i, db := range snap.MagnitudesDB {
			peaks = append(peaks, peak{freq: float64(i) * snap.BinHz, db: db})
		}
		sort.Slice(peaks, func(i, j int) bool { return peaks[i].db > peaks[j].db })

		fmt.Printf("spectrum:")
		for i := 0; i < 3 && i < len(peaks); i++ {
			fmt.Printf("  %.0f Hz %.1f dB", peaks[i].freq, peaks[i].db)
		}
		fmt.Println()
	}
}

// synthDevice satisfies engine.Device with a paced tone + noise source
// and a discarding sink.
type synthDevice struct{}

func (synthDevice) OpenSource(string, engine.CaptureOptions) (engine.Source, error) {
	return &synthSource{rng: rand.New(rand.NewSource(1))}, nil
}

func (synthDevice) OpenSink(string) (engine.Sink, error) {
	return discardSink{}, nil
}

type synthSource struct {
	phase  float64
	rng    *rand.Rand
	closed atomic.Bool
}

func (s *synthSource) SampleRate() float64 { return sampleRate }

func (s *synthSource) ReadBlock(block []float64) (int, error) {
	if s.closed.Load() {
		return 0, fmt.Errorf("source closed")
	}

	// Pace roughly in real time.
	time.Sleep(time.Duration(float64(len(block)) / sampleRate * float64(time.Second)))

	const step = 2 * math.Pi * 440 / sampleRate
	for i := range block {
		block[i] = 0.4*math.Sin(s.phase) + 0.02*(s.rng.Float64()*2-1)
		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	return len(block), nil
}

func (s *synthSource) Close() error {
	s.closed.Store(true)
	return nil
}

type discardSink struct{}

func (discardSink) WriteBlock(left, right []float64) error { return nil }
func (discardSink) Close() error                           { return nil }
