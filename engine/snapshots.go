package engine

import (
	"iter"

	"github.com/cwbudde/algo-live/analyzer"
)

// Snapshot returns the latest analyzer snapshot of the installed graph.
// The second result is false when the engine is not running or the
// analyzer ring has not filled yet.
func (e *Engine) Snapshot() (analyzer.Snapshot, bool) {
	g := e.installed.Load()
	if g == nil {
		return analyzer.Snapshot{}, false
	}
	return g.Tap().Snapshot()
}

// Snapshots returns a lazy sequence of analyzer snapshots, one fresh
// spectrum per pull. The sequence ends when the engine has no live
// analyzer; callers polling at display rate simply range again after
// the next start.
func (e *Engine) Snapshots() iter.Seq[analyzer.Snapshot] {
	return func(yield func(analyzer.Snapshot) bool) {
		for {
			snap, ok := e.Snapshot()
			if !ok {
				return
			}
			if !yield(snap) {
				return
			}
		}
	}
}
