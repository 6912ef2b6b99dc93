package config

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative gain", func(c *Config) { c.Gain = -0.5 }},
		{"NaN gain", func(c *Config) { c.Gain = math.NaN() }},
		{"drive above one", func(c *Config) { c.Drive = 1.2 }},
		{"drive below zero", func(c *Config) { c.Drive = -0.1 }},
		{"block size too small", func(c *Config) { c.BlockSize = 16 }},
		{"block size too large", func(c *Config) { c.BlockSize = 1 << 20 }},
		{"Q below minimum", func(c *Config) { c.Bands[2].Q = 0.05 }},
		{"Q above maximum", func(c *Config) { c.Bands[2].Q = 25 }},
		{"zero band frequency", func(c *Config) { c.Bands[1].FrequencyHz = 0 }},
		{"unknown filter kind", func(c *Config) { c.Bands[0].Kind = "notch" }},
		{"pan below range", func(c *Config) { c.Pan = -1.5 }},
		{"pan above range", func(c *Config) { c.Pan = 1.5 }},
		{"feedback above range", func(c *Config) { c.Delay.Feedback = 0.96 }},
		{"negative feedback", func(c *Config) { c.Delay.Feedback = -0.01 }},
		{"mix above range", func(c *Config) { c.Reverb.Mix = 1.01 }},
		{"mix below range", func(c *Config) { c.Reverb.Mix = -0.01 }},
		{"zero gate release", func(c *Config) { c.Gate.ReleaseSeconds = 0 }},
		{"infinite gate threshold", func(c *Config) { c.Gate.ThresholdDB = math.Inf(-1) }},
		{"compressor ratio below one", func(c *Config) { c.Compressor.Ratio = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidateAcceptsBoundaryValues(t *testing.T) {
	cfg := Default()
	cfg.Pan = MaxPan
	cfg.Delay.Feedback = MaxFeedback
	cfg.Reverb.Mix = MaxMix
	cfg.Bands[2].Q = MinQ
	cfg.Drive = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestPeakingQOnlyValidatedForPeakingBands(t *testing.T) {
	cfg := Default()
	// Shelf bands ignore Q entirely.
	cfg.Bands[0].Q = 0
	cfg.Bands[4].Q = 100
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
