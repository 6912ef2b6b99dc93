package config

// ChangeKind distinguishes changes that can be written into the live
// graph from changes that require a full rebuild.
type ChangeKind int

const (
	// Hot changes are continuous value updates applied in place to the
	// installed graph with no interruption.
	Hot ChangeKind = iota

	// Structural changes alter the graph topology, the device binding,
	// or the block size, and force a stop/rebuild/start cycle.
	Structural
)

func (k ChangeKind) String() string {
	if k == Structural {
		return "structural"
	}
	return "hot"
}

// Change records one changed configuration field.
type Change struct {
	Field string
	Kind  ChangeKind
}

// Diff compares two snapshots field by field and classifies every
// difference. Enabling or disabling any stage, changing the device
// selection, or changing the block size is structural; every continuous
// value change is hot.
func Diff(old, next Config) []Change {
	var out []Change

	add := func(field string, kind ChangeKind) {
		out = append(out, Change{Field: field, Kind: kind})
	}

	if old.DeviceID != next.DeviceID {
		add("deviceID", Structural)
	}
	if old.OutputID != next.OutputID {
		add("outputID", Structural)
	}
	if old.BlockSize != next.BlockSize {
		add("blockSize", Structural)
	}
	if old.Compressor.Enabled != next.Compressor.Enabled {
		add("compressor.enabled", Structural)
	}
	if old.Delay.Enabled != next.Delay.Enabled {
		add("delay.enabled", Structural)
	}
	if old.Gate.Enabled != next.Gate.Enabled {
		add("gate.enabled", Structural)
	}
	if old.Reverb.Enabled != next.Reverb.Enabled {
		add("reverb.enabled", Structural)
	}

	if old.Gain != next.Gain {
		add("gain", Hot)
	}
	if old.Drive != next.Drive {
		add("drive", Hot)
	}
	if old.PostGain != next.PostGain {
		add("postGain", Hot)
	}
	if old.Pan != next.Pan {
		add("pan", Hot)
	}
	for i := range old.Bands {
		if old.Bands[i] != next.Bands[i] {
			add("band."+old.Bands[i].ID, Hot)
		}
	}
	if compressorValuesDiffer(old.Compressor, next.Compressor) {
		add("compressor", Hot)
	}
	if old.Delay.TimeSeconds != next.Delay.TimeSeconds || old.Delay.Feedback != next.Delay.Feedback {
		add("delay", Hot)
	}
	if old.Gate.ThresholdDB != next.Gate.ThresholdDB || old.Gate.ReleaseSeconds != next.Gate.ReleaseSeconds {
		add("gate", Hot)
	}
	if old.Reverb.Mix != next.Reverb.Mix {
		add("reverb.mix", Hot)
	}

	return out
}

// AnyStructural reports whether changes contains a structural entry.
func AnyStructural(changes []Change) bool {
	for _, ch := range changes {
		if ch.Kind == Structural {
			return true
		}
	}
	return false
}

func compressorValuesDiffer(a, b Compressor) bool {
	return a.ThresholdDB != b.ThresholdDB ||
		a.KneeDB != b.KneeDB ||
		a.Ratio != b.Ratio ||
		a.AttackMs != b.AttackMs ||
		a.ReleaseMs != b.ReleaseMs
}
