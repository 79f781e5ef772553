package predicate

import (
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Report holds the evaluation statistics of a single node.
type Report struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Truths   int64         `json:"truths"`
	Falses   int64         `json:"falses"`
}

// DurationMs is the cumulative evaluation time in milliseconds.
func (r Report) DurationMs() float64 {
	return float64(r.Duration) / float64(time.Millisecond)
}

// ReportSummary aggregates the reports of every node of a tree; the root
// report comes first in Details.
type ReportSummary struct {
	Duration time.Duration `json:"duration"`
	Truths   int64         `json:"truths"`
	Falses   int64         `json:"falses"`
	Details  []Report      `json:"details"`
}

// Reporter accumulates statistics with atomic counters so that one tree may
// be evaluated from several goroutines.
type Reporter struct {
	id       ulid.ULID
	name     string
	duration atomic.Int64
	truths   atomic.Int64
	falses   atomic.Int64
}

func NewReporter(name string) *Reporter {
	return &Reporter{
		id:   ulid.Make(),
		name: name,
	}
}

func (r *Reporter) ID() ulid.ULID {
	return r.id
}

func (r *Reporter) Name() string {
	return r.name
}

func (r *Reporter) Record(result bool, d time.Duration) {
	r.duration.Add(int64(d))
	if result {
		r.truths.Add(1)
	} else {
		r.falses.Add(1)
	}
}

func (r *Reporter) Reset() {
	r.duration.Store(0)
	r.truths.Store(0)
	r.falses.Store(0)
}

func (r *Reporter) Report() Report {
	return Report{
		ID:       r.id.String(),
		Name:     r.name,
		Duration: time.Duration(r.duration.Load()),
		Truths:   r.truths.Load(),
		Falses:   r.falses.Load(),
	}
}

// Summarize collects the reports of root and all its descendants.
func Summarize(root Node) ReportSummary {
	var summary ReportSummary
	_ = Walk(root, func(n Node, _ int) error {
		report := n.Reporter().Report()
		summary.Duration += report.Duration
		summary.Truths += report.Truths
		summary.Falses += report.Falses
		summary.Details = append(summary.Details, report)
		return nil
	})
	return summary
}

// ResetReports clears the statistics of root and all its descendants.
func ResetReports(root Node) {
	_ = Walk(root, func(n Node, _ int) error {
		n.Reporter().Reset()
		return nil
	})
}
