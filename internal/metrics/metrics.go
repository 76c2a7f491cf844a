package metrics

import (
	"time"
)

// Collector receives engine counters. Implementations must be safe for
// concurrent use.
type Collector interface {
	// RunStarted is called when a pipeline run begins.
	RunStarted()
	// RunPublished is called when a run's result is committed to observers.
	RunPublished(duration time.Duration)
	// RunSuperseded is called when a run is abandoned because a newer
	// notification arrived before it could publish.
	RunSuperseded()
	// RecordsDropped counts raw records skipped as malformed.
	RecordsDropped(count int)
	// DuplicatesMerged counts transactions removed by deduplication.
	DuplicatesMerged(count int)
	// IncompleteSnapshot is called when at least one source feed was
	// unreachable at snapshot time.
	IncompleteSnapshot()
}

// NoOpCollector discards all metrics. It is the default when no collector is
// configured.
type NoOpCollector struct{}

func (NoOpCollector) RunStarted()                {}
func (NoOpCollector) RunPublished(time.Duration) {}
func (NoOpCollector) RunSuperseded()             {}
func (NoOpCollector) RecordsDropped(int)         {}
func (NoOpCollector) DuplicatesMerged(int)       {}
func (NoOpCollector) IncompleteSnapshot()        {}
