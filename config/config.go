// Package config defines the engine configuration snapshot and the
// classification of configuration changes into hot updates and
// structural rebuilds.
//
// A Config is an immutable value: the control path edits a copy and
// hands the whole snapshot to the engine. Validation happens at this
// boundary; an invalid snapshot is rejected as a unit and the prior
// valid configuration stays in effect.
package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid is returned for any configuration value outside its
// documented range. Callers can test with errors.Is.
var ErrInvalid = errors.New("config: invalid value")

// Validation ranges.
const (
	MinQ        = 0.1
	MaxQ        = 20.0
	MinFeedback = 0.0
	MaxFeedback = 0.95
	MinPan      = -1.0
	MaxPan      = 1.0
	MinMix      = 0.0
	MaxMix      = 1.0

	minDelaySeconds = 0.0
	maxDelaySeconds = 2.0
	minBlockSize    = 32
	maxBlockSize    = 8192
)

// FilterKind selects the filter type of an EQ band.
type FilterKind string

const (
	FilterLowShelf  FilterKind = "lowshelf"
	FilterPeaking   FilterKind = "peaking"
	FilterHighShelf FilterKind = "highshelf"
)

// BandCount is the fixed number of equalizer bands.
const BandCount = 5

// EQBand describes one equalizer band.
type EQBand struct {
	ID          string
	Label       string
	GainDB      float64
	Q           float64 // used by peaking bands only
	FrequencyHz float64
	Kind        FilterKind
}

// Compressor holds the dynamics stage parameters.
type Compressor struct {
	ThresholdDB float64
	KneeDB      float64
	Ratio       float64
	AttackMs    float64
	ReleaseMs   float64
	Enabled     bool
}

// Delay holds the feedback delay stage parameters.
type Delay struct {
	TimeSeconds float64
	Feedback    float64
	Enabled     bool
}

// Gate holds the noise gate stage parameters.
type Gate struct {
	ThresholdDB    float64
	ReleaseSeconds float64
	Enabled        bool
}

// Reverb holds the convolution reverb stage parameters.
type Reverb struct {
	Mix     float64
	Enabled bool
}

// Config is one complete engine configuration snapshot.
type Config struct {
	Gain       float64
	Drive      float64
	BlockSize  int
	Bands      [BandCount]EQBand
	PostGain   float64
	Compressor Compressor
	Delay      Delay
	Pan        float64
	Gate       Gate
	Reverb     Reverb

	// Device selection. Changing either is a structural change.
	DeviceID string
	OutputID string
}

// Default returns the canonical configuration: unity gain, no drive,
// flat five-band EQ, all optional stages disabled, centered pan.
func Default() Config {
	return Config{
		Gain:      1.0,
		Drive:     0.0,
		BlockSize: 256,
		Bands: [BandCount]EQBand{
			{ID: "sub", Label: "Sub", Q: 1.0, FrequencyHz: 60, Kind: FilterLowShelf},
			{ID: "bass", Label: "Bass", Q: 1.0, FrequencyHz: 250, Kind: FilterPeaking},
			{ID: "mid", Label: "Mid", Q: 1.0, FrequencyHz: 1000, Kind: FilterPeaking},
			{ID: "upperMid", Label: "Upper Mid", Q: 1.0, FrequencyHz: 4000, Kind: FilterPeaking},
			{ID: "treble", Label: "Treble", Q: 1.0, FrequencyHz: 12000, Kind: FilterHighShelf},
		},
		PostGain: 1.0,
		Compressor: Compressor{
			ThresholdDB: -24,
			KneeDB:      30,
			Ratio:       12,
			AttackMs:    3,
			ReleaseMs:   250,
		},
		Delay: Delay{TimeSeconds: 0.25, Feedback: 0.35},
		Pan:   0,
		Gate:  Gate{ThresholdDB: -50, ReleaseSeconds: 0.2},
		Reverb: Reverb{
			Mix: 0.3,
		},
	}
}

// Validate checks every field against its documented range. The first
// violation is reported; nothing is mutated.
func (c Config) Validate() error {
	if err := requireFinite("gain", c.Gain); err != nil {
		return err
	}
	if c.Gain < 0 {
		return fmt.Errorf("%w: gain must be >= 0: %f", ErrInvalid, c.Gain)
	}
	if err := requireRange("drive", c.Drive, 0, 1); err != nil {
		return err
	}
	if c.BlockSize < minBlockSize || c.BlockSize > maxBlockSize {
		return fmt.Errorf("%w: block size must be in [%d, %d]: %d",
			ErrInvalid, minBlockSize, maxBlockSize, c.BlockSize)
	}
	for i, band := range c.Bands {
		if err := c.validateBand(i, band); err != nil {
			return err
		}
	}
	if err := requireFinite("postGain", c.PostGain); err != nil {
		return err
	}
	if c.PostGain < 0 {
		return fmt.Errorf("%w: postGain must be >= 0: %f", ErrInvalid, c.PostGain)
	}
	if err := c.validateCompressor(); err != nil {
		return err
	}
	if err := requireRange("delay time", c.Delay.TimeSeconds, minDelaySeconds, maxDelaySeconds); err != nil {
		return err
	}
	if err := requireRange("delay feedback", c.Delay.Feedback, MinFeedback, MaxFeedback); err != nil {
		return err
	}
	if err := requireRange("pan", c.Pan, MinPan, MaxPan); err != nil {
		return err
	}
	if err := requireFinite("gate threshold", c.Gate.ThresholdDB); err != nil {
		return err
	}
	if c.Gate.ReleaseSeconds <= 0 || math.IsNaN(c.Gate.ReleaseSeconds) || math.IsInf(c.Gate.ReleaseSeconds, 0) {
		return fmt.Errorf("%w: gate release must be > 0: %f", ErrInvalid, c.Gate.ReleaseSeconds)
	}
	if err := requireRange("reverb mix", c.Reverb.Mix, MinMix, MaxMix); err != nil {
		return err
	}
	return nil
}

func (c Config) validateBand(i int, band EQBand) error {
	switch band.Kind {
	case FilterLowShelf, FilterPeaking, FilterHighShelf:
	default:
		return fmt.Errorf("%w: band %d filter kind: %q", ErrInvalid, i, band.Kind)
	}
	if err := requireFinite(fmt.Sprintf("band %d gain", i), band.GainDB); err != nil {
		return err
	}
	if band.Kind == FilterPeaking {
		if err := requireRange(fmt.Sprintf("band %d Q", i), band.Q, MinQ, MaxQ); err != nil {
			return err
		}
	}
	if band.FrequencyHz <= 0 || math.IsNaN(band.FrequencyHz) || math.IsInf(band.FrequencyHz, 0) {
		return fmt.Errorf("%w: band %d frequency must be > 0: %f", ErrInvalid, i, band.FrequencyHz)
	}
	return nil
}

func (c Config) validateCompressor() error {
	comp := c.Compressor
	if err := requireFinite("compressor threshold", comp.ThresholdDB); err != nil {
		return err
	}
	if err := requireRange("compressor knee", comp.KneeDB, 0, 40); err != nil {
		return err
	}
	if err := requireRange("compressor ratio", comp.Ratio, 1, 20); err != nil {
		return err
	}
	if err := requireRange("compressor attack", comp.AttackMs, 0, 1000); err != nil {
		return err
	}
	if err := requireRange("compressor release", comp.ReleaseMs, 1, 5000); err != nil {
		return err
	}
	return nil
}

func requireFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite: %f", ErrInvalid, name, v)
	}
	return nil
}

func requireRange(name string, v, lo, hi float64) error {
	if v < lo || v > hi || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be in [%g, %g]: %f", ErrInvalid, name, lo, hi, v)
	}
	return nil
}
