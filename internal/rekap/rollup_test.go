package rekap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoGroupTable() []OfficeDescriptor {
	return []OfficeDescriptor{
		{Sequence: 1, ParentGroup: "KANWIL JATENG", Name: "Semarang I"},
		{Sequence: 2, Name: "Semarang II"},
		{Sequence: 3, ParentGroup: "CABANG SOLO", Name: "Surakarta"},
		{Sequence: 4, Name: "Boyolali"},
		{Sequence: 5, Name: "Klaten"},
	}
}

func twoGroupAggregates() []OfficeAggregate {
	return []OfficeAggregate{
		{CheckinCount: 10, CheckinAmount: 100, CheckoutCount: 8, CheckoutAmount: 80, ConfirmedCount: 6, ConfirmedAmount: 60, AddedCount: 1, AddedAmount: 10, Pursued: 3, GapCount: 4, RemainderCount: 1, RemainderAmount: 10},
		{CheckinCount: 5, CheckinAmount: 50, CheckoutCount: 5, CheckoutAmount: 50, ConfirmedCount: 5, ConfirmedAmount: 50, Pursued: 0, GapCount: 0},
		{CheckinCount: 4, CheckinAmount: 40, CheckoutCount: 6, CheckoutAmount: 60, ConfirmedCount: 2, ConfirmedAmount: 20, AddedCount: 3, AddedAmount: 30, Pursued: 2, GapCount: 2, RemainderCount: 1, RemainderAmount: 10},
		{CheckinCount: 0, CheckoutCount: 2, CheckoutAmount: 20, AddedCount: 2, AddedAmount: 20, Pursued: 5, GapCount: 0},
		ZeroAggregate(),
	}
}

func TestRollupInterleavesHeadersAndSubtotals(t *testing.T) {
	rows := Rollup(twoGroupTable(), twoGroupAggregates())

	kinds := make([]RowKind, len(rows))
	labels := make([]string, len(rows))
	for i, row := range rows {
		kinds[i] = row.Kind
		labels[i] = row.Label
	}
	assert.Equal(t, []RowKind{
		RowGroupHeader, RowDetail, RowDetail, RowSubtotal,
		RowGroupHeader, RowDetail, RowDetail, RowDetail, RowSubtotal,
		RowGrandTotal,
	}, kinds)
	assert.Equal(t, "SUB TOTAL KANWIL JATENG", labels[3])
	assert.Equal(t, "TOTAL", labels[9])
	assert.True(t, rows[7].Failed)
}

func TestRollupSubtotalAdditivity(t *testing.T) {
	aggs := twoGroupAggregates()
	rows := Rollup(twoGroupTable(), aggs)

	first, second := rows[3], rows[8]
	assert.Equal(t, aggs[0].CheckinCount+aggs[1].CheckinCount, first.CheckinCount)
	assert.Equal(t, aggs[0].ConfirmedAmount+aggs[1].ConfirmedAmount, first.ConfirmedAmount)
	assert.Equal(t, aggs[0].GapCount+aggs[1].GapCount, first.GapCount)
	assert.Equal(t, aggs[2].CheckoutCount+aggs[3].CheckoutCount+aggs[4].CheckoutCount, second.CheckoutCount)
	assert.Equal(t, aggs[2].AddedAmount+aggs[3].AddedAmount, second.AddedAmount)
	assert.Equal(t, aggs[2].RemainderAmount, second.RemainderAmount)

	// 11 / 15
	assert.InDelta(t, 73.333, first.ConfirmedPct, 0.001)
	// Only Semarang I paid in advance.
	assert.Equal(t, int64(3), first.Pursued)
	// (2 + 5) / 2 = 3.5
	assert.Equal(t, int64(4), second.Pursued)
}

func TestRollupGrandTotalSumsSubtotals(t *testing.T) {
	rows := Rollup(twoGroupTable(), twoGroupAggregates())
	total := rows[len(rows)-1]
	first, second := rows[3], rows[8]

	assert.Equal(t, first.CheckinCount+second.CheckinCount, total.CheckinCount)
	assert.Equal(t, first.CheckoutAmount+second.CheckoutAmount, total.CheckoutAmount)
	assert.Equal(t, first.ConfirmedCount+second.ConfirmedCount, total.ConfirmedCount)
	assert.Equal(t, first.AddedCount+second.AddedCount, total.AddedCount)
	assert.Equal(t, first.GapCount+second.GapCount, total.GapCount)
	assert.Equal(t, first.RemainderCount+second.RemainderCount, total.RemainderCount)
	// Confirmed over checkout at grand total level: 13 / 21.
	assert.InDelta(t, 61.905, total.ConfirmedPct, 0.001)
	// (3 + 4) / 2 = 3.5
	assert.Equal(t, int64(4), total.Pursued)
}

func TestRollupIsIdempotent(t *testing.T) {
	table := twoGroupTable()
	aggs := twoGroupAggregates()
	assert.Equal(t, Rollup(table, aggs), Rollup(table, aggs))
}

func TestRollupOfficesBeforeFirstGroupAreNotSubtotalled(t *testing.T) {
	table := []OfficeDescriptor{
		{Sequence: 1, Name: "Loose"},
		{Sequence: 2, ParentGroup: "KANWIL X", Name: "Member"},
	}
	aggs := []OfficeAggregate{{CheckinCount: 7}, {CheckinCount: 3}}
	rows := Rollup(table, aggs)

	require.Len(t, rows, 5)
	assert.Equal(t, RowDetail, rows[0].Kind)
	assert.Equal(t, int64(3), rows[3].CheckinCount)
	assert.Equal(t, int64(3), rows[4].CheckinCount)
}

func TestRollupEmptyTable(t *testing.T) {
	rows := Rollup(nil, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, RowGrandTotal, rows[0].Kind)
	assert.Equal(t, 0.0, rows[0].ConfirmedPct)
}

func TestRollupMissingAggregatesCountAsZero(t *testing.T) {
	rows := Rollup(twoGroupTable(), nil)
	total := rows[len(rows)-1]
	assert.Equal(t, int64(0), total.CheckinCount)
	assert.NotNil(t, rows[1].GapDetails)
}
