package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes live engine state to Prometheus.
//
//	prometheus.MustRegister(engine.NewCollector(e))
type Collector struct {
	engine *Engine

	inFlight     *prometheus.Desc
	capacity     *prometheus.Desc
	cacheEntries *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector reading e on every scrape.
func NewCollector(e *Engine) *Collector {
	return &Collector{
		engine: e,
		inFlight: prometheus.NewDesc(
			"swarms_client_inflight_slots",
			"Concurrency slots currently held.",
			nil, nil,
		),
		capacity: prometheus.NewDesc(
			"swarms_client_capacity_slots",
			"Configured concurrency slot budget.",
			nil, nil,
		),
		cacheEntries: prometheus.NewDesc(
			"swarms_client_cache_entries",
			"Entries in the response cache.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inFlight
	ch <- c.capacity
	ch <- c.cacheEntries
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.engine.Stats()
	ch <- prometheus.MustNewConstMetric(c.inFlight, prometheus.GaugeValue, float64(s.InFlight))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(c.cacheEntries, prometheus.GaugeValue, float64(s.CacheEntries))
}
