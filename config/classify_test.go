package config

import "testing"

func TestDiffEmptyForIdenticalConfigs(t *testing.T) {
	cfg := Default()
	if changes := Diff(cfg, cfg); len(changes) != 0 {
		t.Fatalf("Diff() = %v, want empty", changes)
	}
}

func TestDiffClassification(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		field    string
		wantKind ChangeKind
	}{
		{"gain value", func(c *Config) { c.Gain = 2 }, "gain", Hot},
		{"drive value", func(c *Config) { c.Drive = 0.7 }, "drive", Hot},
		{"post gain value", func(c *Config) { c.PostGain = 0.5 }, "postGain", Hot},
		{"pan value", func(c *Config) { c.Pan = -0.3 }, "pan", Hot},
		{"band frequency", func(c *Config) { c.Bands[2].FrequencyHz = 1200 }, "band.mid", Hot},
		{"band Q", func(c *Config) { c.Bands[3].Q = 2.5 }, "band.upperMid", Hot},
		{"band gain", func(c *Config) { c.Bands[0].GainDB = 4 }, "band.sub", Hot},
		{"compressor ratio", func(c *Config) { c.Compressor.Ratio = 6 }, "compressor", Hot},
		{"compressor threshold", func(c *Config) { c.Compressor.ThresholdDB = -30 }, "compressor", Hot},
		{"delay time", func(c *Config) { c.Delay.TimeSeconds = 0.5 }, "delay", Hot},
		{"delay feedback", func(c *Config) { c.Delay.Feedback = 0.5 }, "delay", Hot},
		{"gate threshold", func(c *Config) { c.Gate.ThresholdDB = -40 }, "gate", Hot},
		{"reverb mix", func(c *Config) { c.Reverb.Mix = 0.8 }, "reverb.mix", Hot},
		{"compressor toggle", func(c *Config) { c.Compressor.Enabled = true }, "compressor.enabled", Structural},
		{"delay toggle", func(c *Config) { c.Delay.Enabled = true }, "delay.enabled", Structural},
		{"gate toggle", func(c *Config) { c.Gate.Enabled = true }, "gate.enabled", Structural},
		{"reverb toggle", func(c *Config) { c.Reverb.Enabled = true }, "reverb.enabled", Structural},
		{"device change", func(c *Config) { c.DeviceID = "usb-2" }, "deviceID", Structural},
		{"output change", func(c *Config) { c.OutputID = "hdmi" }, "outputID", Structural},
		{"block size change", func(c *Config) { c.BlockSize = 512 }, "blockSize", Structural},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := Default()
			next := Default()
			tt.mutate(&next)

			changes := Diff(old, next)
			if len(changes) != 1 {
				t.Fatalf("Diff() = %v, want exactly one change", changes)
			}
			if changes[0].Field != tt.field {
				t.Errorf("field = %q, want %q", changes[0].Field, tt.field)
			}
			if changes[0].Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", changes[0].Kind, tt.wantKind)
			}
		})
	}
}

func TestAnyStructural(t *testing.T) {
	old := Default()

	hot := Default()
	hot.Gain = 3
	if AnyStructural(Diff(old, hot)) {
		t.Error("gain change classified as structural")
	}

	structural := Default()
	structural.Reverb.Enabled = true
	structural.Gain = 3
	if !AnyStructural(Diff(old, structural)) {
		t.Error("reverb toggle not classified as structural")
	}
}
