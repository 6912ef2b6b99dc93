// Package drive synthesizes waveshaping transfer curves and applies them
// with oversampling.
//
// The curve is a pure function of the drive amount, recomputed on the
// control path whenever drive changes and installed into the running
// shaper by pointer swap. The render path only ever reads a complete
// table.
package drive

import (
	"fmt"
	"math"
)

// DefaultTableSize is the standard transfer table resolution.
const DefaultTableSize = 256

const (
	minDrive = 0.0
	maxDrive = 1.0
)

// Curve generates the waveshaping transfer table for the given drive
// amount in [0, 1]. The table maps input amplitude in [-1, 1] to output
// amplitude, and is odd-symmetric within table granularity.
func Curve(drive float64, tableSize int) ([]float64, error) {
	if drive < minDrive || drive > maxDrive || math.IsNaN(drive) || math.IsInf(drive, 0) {
		return nil, fmt.Errorf("drive must be in [%g, %g]: %f", minDrive, maxDrive, drive)
	}
	if tableSize < 2 {
		return nil, fmt.Errorf("drive table size must be >= 2: %d", tableSize)
	}

	const deg = math.Pi / 180

	k := drive * 50
	curve := make([]float64, tableSize)
	for i := range curve {
		x := float64(i)*2/float64(tableSize) - 1
		curve[i] = ((3 + k) * x * 20 * deg) / (math.Pi + k*math.Abs(x))
	}
	return curve, nil
}
