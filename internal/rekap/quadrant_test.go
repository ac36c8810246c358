package rekap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierThresholdsAreInclusive(t *testing.T) {
	cases := []struct {
		metric Metric
		value  float64
		tier   int
	}{
		{MetricConfirmed, 100, 1},
		{MetricConfirmed, 76, 1},
		{MetricConfirmed, 75.99, 2},
		{MetricConfirmed, 51, 2},
		{MetricConfirmed, 26, 3},
		{MetricConfirmed, 25.9, 4},
		{MetricConfirmed, 0, 4},
		{MetricPursued, 10, 1},
		{MetricPursued, 7, 2},
		{MetricPursued, 4, 3},
		{MetricPursued, 3, 4},
		{MetricAdded, 15, 1},
		{MetricAdded, 11, 2},
		{MetricAdded, 6, 3},
		{MetricAdded, 5, 4},
		{Metric("unknown"), 99, 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.tier, Tier(tc.metric, tc.value), "%s=%v", tc.metric, tc.value)
	}
}

func TestClassifySortsDescending(t *testing.T) {
	q := Classify([]BranchMetric{
		{Label: "KANWIL A", ConfirmedPct: 80, Pursued: 2, Added: 20},
		{Label: "KANWIL B", ConfirmedPct: 90, Pursued: 8, Added: 3},
		{Label: "CABANG C", ConfirmedPct: 10, Pursued: 12, Added: 15},
		{Label: "CABANG D", ConfirmedPct: 80, Pursued: 0, Added: 0},
	})

	top := q.Confirmed[0]
	assert.Equal(t, 1, top.Tier)
	require.Equal(t, 3, top.Count)
	assert.Equal(t, []QuadrantItem{
		{Label: "KANWIL B", Value: 90},
		{Label: "CABANG D", Value: 80},
		{Label: "KANWIL A", Value: 80},
	}, top.Items)
	assert.Equal(t, 1, q.Confirmed[3].Count)
	assert.Equal(t, 0, q.Confirmed[1].Count)
	assert.NotNil(t, q.Confirmed[1].Items)

	assert.Equal(t, "CABANG C", q.Pursued[0].Items[0].Label)
	assert.Equal(t, "KANWIL B", q.Pursued[1].Items[0].Label)
	assert.Equal(t, 2, q.Pursued[3].Count)

	assert.Equal(t, []QuadrantItem{{Label: "KANWIL A", Value: 20}, {Label: "CABANG C", Value: 15}}, q.Added[0].Items)
}

func TestBranchMetricsPairsTopLevelHeadersWithNextSubtotal(t *testing.T) {
	rows := Rollup([]OfficeDescriptor{
		{Sequence: 1, ParentGroup: "KANWIL JATENG", Name: "A"},
		{Sequence: 2, ParentGroup: "SAMSAT KELILING", Name: "B"},
		{Sequence: 3, ParentGroup: "CABANG SOLO", Name: "C"},
	}, []OfficeAggregate{
		{CheckinCount: 4, ConfirmedCount: 3, Pursued: 5, AddedCount: 2},
		{CheckinCount: 1, ConfirmedCount: 1},
		{CheckinCount: 2, ConfirmedCount: 0, AddedCount: 9},
	})

	metrics := BranchMetrics(rows)
	require.Len(t, metrics, 2)
	assert.Equal(t, BranchMetric{Label: "KANWIL JATENG", ConfirmedPct: 75, Pursued: 5, Added: 2}, metrics[0])
	assert.Equal(t, BranchMetric{Label: "CABANG SOLO", ConfirmedPct: 0, Pursued: 0, Added: 9}, metrics[1])
}
