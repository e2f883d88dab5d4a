package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a MemBlock through the registry's entry metadata as a
// prometheus.Collector, so the same binary-stable memory block c-icap
// children share is also scrapeable. It is ambient observability, not a
// spec feature: a nil *Collector (the zero value of *Collector is never
// registered) disables it entirely with no effect on MemBlock semantics.
type Collector struct {
	registry *Registry
	block    *MemBlock
	subsys   string
}

// NewCollector builds a prometheus.Collector over block using registry for
// entry labels and types. subsys names the Prometheus subsystem ("child",
// "monitor", ...) every metric is namespaced under.
func NewCollector(registry *Registry, block *MemBlock, subsys string) *Collector {
	return &Collector{registry: registry, block: block, subsys: subsys}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.registry.Iterate(func(id int, label string, typ Type, group GroupID) {
		ch <- c.desc(id, label, typ)
	})
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.registry.Iterate(func(id int, label string, typ Type, group GroupID) {
		desc := c.desc(id, label, typ)
		switch typ {
		case TypeCounter:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(c.block.GetCounter(id)))
		case TypeKBS:
			kb, _ := c.block.KBS(id)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(kb))
		case TypeTimeUS, TypeTimeMS, TypeIntMean:
			mean, _ := c.block.Mean(id)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(mean))
		}
	})
}

func (c *Collector) desc(id int, label string, typ Type) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName("icapd", c.subsys, sanitizeName(label)),
		"icapd statistics entry "+label+" ("+typ.String()+")",
		nil, nil,
	)
}

func sanitizeName(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
