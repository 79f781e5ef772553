package predicate

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
)

// ReportCollector exports the evaluation reports of tracked trees as
// Prometheus counters. Values are read at scrape time.
type ReportCollector struct {
	mu    sync.RWMutex
	trees map[string]p.Node

	truths   *prometheus.Desc
	falses   *prometheus.Desc
	duration *prometheus.Desc
}

func NewReportCollector(namespace string) *ReportCollector {
	labels := []string{"tree", "node", "name"}
	return &ReportCollector{
		trees: make(map[string]p.Node),
		truths: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "evaluations_true_total"),
			"Number of evaluations of a predicate node that returned true.",
			labels, nil,
		),
		falses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "evaluations_false_total"),
			"Number of evaluations of a predicate node that returned false.",
			labels, nil,
		),
		duration: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "evaluation_duration_seconds_total"),
			"Cumulative time spent evaluating a predicate node.",
			labels, nil,
		),
	}
}

// Track starts exporting the reports of root under the tree label name.
// Tracking another root under the same name replaces it.
func (c *ReportCollector) Track(name string, root p.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trees[name] = root
}

func (c *ReportCollector) Untrack(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.trees, name)
}

func (c *ReportCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.truths
	ch <- c.falses
	ch <- c.duration
}

func (c *ReportCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for tree, root := range c.trees {
		for _, r := range p.Summarize(root).Details {
			ch <- prometheus.MustNewConstMetric(c.truths, prometheus.CounterValue, float64(r.Truths), tree, r.ID, r.Name)
			ch <- prometheus.MustNewConstMetric(c.falses, prometheus.CounterValue, float64(r.Falses), tree, r.ID, r.Name)
			ch <- prometheus.MustNewConstMetric(c.duration, prometheus.CounterValue, r.Duration.Seconds(), tree, r.ID, r.Name)
		}
	}
}
