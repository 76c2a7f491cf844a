// Package prometheus implements metrics.Collector on the Prometheus client.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports engine counters as Prometheus metrics.
type Collector struct {
	runsStarted         prometheus.Counter
	runsPublished       prometheus.Counter
	runsSuperseded      prometheus.Counter
	runDuration         prometheus.Histogram
	recordsDropped      prometheus.Counter
	duplicatesMerged    prometheus.Counter
	incompleteSnapshots prometheus.Counter
}

// NewCollector creates a Collector with all metrics under the given
// namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_started_total",
			Help:      "Total number of pipeline runs started",
		}),
		runsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_published_total",
			Help:      "Total number of pipeline runs whose result was published",
		}),
		runsSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_superseded_total",
			Help:      "Total number of pipeline runs abandoned for a newer notification",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Duration of published pipeline runs",
			Buckets:   prometheus.DefBuckets,
		}),
		recordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Total number of malformed source records skipped",
		}),
		duplicatesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_merged_total",
			Help:      "Total number of cross-source duplicate transactions merged",
		}),
		incompleteSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incomplete_snapshots_total",
			Help:      "Total number of snapshots taken with at least one feed unreachable",
		}),
	}
}

// Register registers all metrics with the given registerer.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		c.runsStarted,
		c.runsPublished,
		c.runsSuperseded,
		c.runDuration,
		c.recordsDropped,
		c.duplicatesMerged,
		c.incompleteSnapshots,
	} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) RunStarted()    { c.runsStarted.Inc() }
func (c *Collector) RunSuperseded() { c.runsSuperseded.Inc() }

func (c *Collector) RunPublished(d time.Duration) {
	c.runsPublished.Inc()
	c.runDuration.Observe(d.Seconds())
}

func (c *Collector) RecordsDropped(count int) {
	c.recordsDropped.Add(float64(count))
}

func (c *Collector) DuplicatesMerged(count int) {
	c.duplicatesMerged.Add(float64(count))
}

func (c *Collector) IncompleteSnapshot() { c.incompleteSnapshots.Inc() }
