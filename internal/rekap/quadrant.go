package rekap

import "sort"

// Metric names a scorecard dimension.
type Metric string

const (
	MetricConfirmed Metric = "memastikan"
	MetricPursued   Metric = "mengupayakan"
	MetricAdded     Metric = "menambahkan"
)

// Tier thresholds, highest first. A value falls in the first tier whose
// lower bound it reaches; anything below the last bound is tier 4.
var tierThresholds = map[Metric][3]float64{
	MetricConfirmed: {76, 51, 26},
	MetricPursued:   {10, 7, 4},
	MetricAdded:     {15, 11, 6},
}

// BranchMetric carries the scorecard inputs of one top-level group.
type BranchMetric struct {
	Label        string  `json:"label"`
	ConfirmedPct float64 `json:"confirmed_pct"`
	Pursued      int64   `json:"pursued"`
	Added        int64   `json:"added"`
}

// QuadrantItem is a ranked branch within a tier.
type QuadrantItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// QuadrantBucket is one tier of one metric.
type QuadrantBucket struct {
	Tier  int            `json:"tier"`
	Count int            `json:"count"`
	Items []QuadrantItem `json:"items"`
}

// Quadrants holds four ordered buckets per metric.
type Quadrants struct {
	Confirmed [4]QuadrantBucket `json:"confirmed"`
	Pursued   [4]QuadrantBucket `json:"pursued"`
	Added     [4]QuadrantBucket `json:"added"`
}

// BranchMetrics pairs each KANWIL/CABANG header with the next subtotal.
func BranchMetrics(rows []RekapRow) []BranchMetric {
	metrics := make([]BranchMetric, 0)
	for i, row := range rows {
		if !row.IsTopLevelGroup() {
			continue
		}
		for j := i + 1; j < len(rows); j++ {
			if rows[j].Kind != RowSubtotal {
				continue
			}
			st := rows[j]
			metrics = append(metrics, BranchMetric{
				Label:        row.Label,
				ConfirmedPct: st.ConfirmedPct,
				Pursued:      st.Pursued,
				Added:        st.AddedCount,
			})
			break
		}
	}
	return metrics
}

// Tier returns the 1-based tier of value for the metric.
func Tier(metric Metric, value float64) int {
	bounds, ok := tierThresholds[metric]
	if !ok {
		return 4
	}
	for i, bound := range bounds {
		if value >= bound {
			return i + 1
		}
	}
	return 4
}

// Classify buckets every branch into a tier per metric.
func Classify(metrics []BranchMetric) Quadrants {
	var q Quadrants
	q.Confirmed = bucketize(MetricConfirmed, metrics, func(m BranchMetric) float64 { return m.ConfirmedPct })
	q.Pursued = bucketize(MetricPursued, metrics, func(m BranchMetric) float64 { return float64(m.Pursued) })
	q.Added = bucketize(MetricAdded, metrics, func(m BranchMetric) float64 { return float64(m.Added) })
	return q
}

func bucketize(metric Metric, metrics []BranchMetric, value func(BranchMetric) float64) [4]QuadrantBucket {
	var buckets [4]QuadrantBucket
	for i := range buckets {
		buckets[i] = QuadrantBucket{Tier: i + 1, Items: []QuadrantItem{}}
	}
	for _, m := range metrics {
		v := value(m)
		idx := Tier(metric, v) - 1
		buckets[idx].Items = append(buckets[idx].Items, QuadrantItem{Label: m.Label, Value: v})
	}
	for i := range buckets {
		items := buckets[i].Items
		sort.SliceStable(items, func(a, b int) bool {
			if items[a].Value != items[b].Value {
				return items[a].Value > items[b].Value
			}
			return items[a].Label < items[b].Label
		})
		buckets[i].Count = len(items)
	}
	return buckets
}
