package predicate

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
)

func TestReportCollector(t *testing.T) {
	b := p.And().Eq("age", 42).Like("name", "Mr*")
	for _, subject := range []map[string]any{
		{"age": 42, "name": "Mr Miyagi"},
		{"age": 42, "name": "Daniel"},
		{"age": 17},
	} {
		_, err := b.Evaluate(subject)
		require.NoError(t, err)
	}

	c := NewReportCollector("predicate")
	c.Track("karate", b.Root())
	assert.Equal(t, 9, testutil.CollectAndCount(c))
	assert.Equal(t, 3, testutil.CollectAndCount(c, "predicate_evaluations_true_total"))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	truths := map[string]float64{}
	falses := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			assert.Equal(t, "karate", labels["tree"])
			assert.NotEmpty(t, labels["node"])
			switch mf.GetName() {
			case "predicate_evaluations_true_total":
				truths[labels["name"]] = m.GetCounter().GetValue()
			case "predicate_evaluations_false_total":
				falses[labels["name"]] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"and": 1, "eq:age": 2, "like:name": 1}, truths)
	assert.Equal(t, map[string]float64{"and": 2, "eq:age": 1, "like:name": 1}, falses)

	c.Untrack("karate")
	assert.Zero(t, testutil.CollectAndCount(c))
}
