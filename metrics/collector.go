// Package metrics exposes a running monitor to Prometheus. Values are read
// from the counters at scrape time, so nothing is duplicated between the
// monitor and the exporter.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"gitlab.com/tinyland/lab/net-meter/monitor"
)

const namespace = "netmeter"

// Collector implements prometheus.Collector over a monitor.
type Collector struct {
	mon *monitor.Monitor

	current *prometheus.Desc
	total   *prometheus.Desc
	cpu     *prometheus.Desc
	ticks   *prometheus.Desc
	up      *prometheus.Desc
	level   *prometheus.Desc
	hits    *prometheus.Desc
}

// NewCollector returns a collector for mon.
func NewCollector(mon *monitor.Monitor) *Collector {
	return &Collector{
		mon: mon,
		current: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "counter", "current_bytes"),
			"Newest smoothed fine-resolution value of a network counter, in bytes per tick.",
			[]string{"label"}, nil,
		),
		total: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "counter", "bytes_total"),
			"Raw bytes ingested by a network counter since start or the last reset.",
			[]string{"label"}, nil,
		),
		cpu: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "cpu_percent"),
			"Newest smoothed fine-resolution CPU busy percent.",
			nil, nil,
		),
		ticks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "ticks_total"),
			"Completed monitor ticks.",
			nil, nil,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sampler", "up"),
			"Whether the sampler succeeded on the last tick.",
			[]string{"sampler"}, nil,
		),
		level: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "alert", "level"),
			"Overall alert level: 0 healthy, 1 warning, 2 critical, 3 unknown.",
			nil, nil,
		),
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "alert", "hits"),
			"Threshold hits counted for an alert rule since the last reset.",
			[]string{"rule", "counter"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.current, c.total, c.cpu, c.ticks, c.up, c.level, c.hits} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, counter := range c.mon.Network() {
		if v, err := counter.Current(0); err == nil {
			ch <- prometheus.MustNewConstMetric(c.current, prometheus.GaugeValue, float64(v), counter.Label())
		}
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, float64(counter.Total()), counter.Label())
	}
	if v, err := c.mon.Percent().Current(0); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpu, prometheus.GaugeValue, float64(v))
	}

	r := c.mon.Report()
	ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(r.Seq))
	for name, state := range r.Samplers {
		up := 0.0
		if state == "ok" {
			up = 1
		}
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up, name)
	}
	ch <- prometheus.MustNewConstMetric(c.level, prometheus.GaugeValue, float64(r.Status.Overall))
	// Rules are indexed since two may watch the same counter.
	for i, a := range r.Status.Alerts {
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.GaugeValue, float64(a.Hits), strconv.Itoa(i), a.Counter)
	}
}

var _ prometheus.Collector = (*Collector)(nil)
