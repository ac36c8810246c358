package rekap

// subtotal is the running state of an open group.
type subtotal struct {
	label        string
	row          RekapRow
	pursuedSum   int64
	pursuedCount int64
}

func openSubtotal(label string) subtotal {
	return subtotal{label: label, row: RekapRow{Kind: RowSubtotal, Label: "SUB TOTAL " + label, GapDetails: []Entry{}}}
}

// accumulate folds one office row into the group state.
func accumulate(acc subtotal, row RekapRow) subtotal {
	acc.row.CheckinCount += row.CheckinCount
	acc.row.CheckinAmount += row.CheckinAmount
	acc.row.CheckoutCount += row.CheckoutCount
	acc.row.CheckoutAmount += row.CheckoutAmount
	acc.row.ConfirmedCount += row.ConfirmedCount
	acc.row.ConfirmedAmount += row.ConfirmedAmount
	acc.row.AddedCount += row.AddedCount
	acc.row.AddedAmount += row.AddedAmount
	acc.row.GapCount += row.GapCount
	acc.row.RemainderCount += row.RemainderCount
	acc.row.RemainderAmount += row.RemainderAmount
	// Average of per-office averages, offices without advance payment are
	// left out of the divisor.
	if row.Pursued > 0 {
		acc.pursuedSum += row.Pursued
		acc.pursuedCount++
	}
	return acc
}

func finalize(acc subtotal) RekapRow {
	row := acc.row
	row.ConfirmedPct = percentage(row.ConfirmedCount, row.CheckinCount)
	if acc.pursuedCount > 0 {
		row.Pursued = roundHalfUp(float64(acc.pursuedSum) / float64(acc.pursuedCount))
	}
	return row
}

// DetailRow converts an office aggregate into its table row.
func DetailRow(desc OfficeDescriptor, agg OfficeAggregate) RekapRow {
	gaps := agg.GapDetails
	if gaps == nil {
		gaps = []Entry{}
	}
	return RekapRow{
		Kind:            RowDetail,
		Sequence:        desc.Sequence,
		Label:           desc.Name,
		Officer:         desc.Officer,
		CheckinCount:    agg.CheckinCount,
		CheckinAmount:   agg.CheckinAmount,
		CheckoutCount:   agg.CheckoutCount,
		CheckoutAmount:  agg.CheckoutAmount,
		ConfirmedCount:  agg.ConfirmedCount,
		ConfirmedAmount: agg.ConfirmedAmount,
		ConfirmedPct:    agg.ConfirmedPct,
		AddedCount:      agg.AddedCount,
		AddedAmount:     agg.AddedAmount,
		Pursued:         agg.Pursued,
		GapCount:        agg.GapCount,
		RemainderCount:  agg.RemainderCount,
		RemainderAmount: agg.RemainderAmount,
		GapDetails:      gaps,
		Failed:          agg.Failed,
	}
}

// Rollup emits detail rows interleaved with group headers and subtotals, in
// descriptor order, followed by the grand total. aggregates is indexed like
// descriptors; missing entries count as zero.
func Rollup(descriptors []OfficeDescriptor, aggregates []OfficeAggregate) []RekapRow {
	rows := make([]RekapRow, 0, len(descriptors)*2+1)
	subtotals := make([]RekapRow, 0)

	var acc subtotal
	open := false
	for i, desc := range descriptors {
		if desc.ParentGroup != "" {
			if open {
				st := finalize(acc)
				rows = append(rows, st)
				subtotals = append(subtotals, st)
			}
			rows = append(rows, RekapRow{Kind: RowGroupHeader, Label: desc.ParentGroup, GapDetails: []Entry{}})
			acc = openSubtotal(desc.ParentGroup)
			open = true
		}

		agg := OfficeAggregate{}
		if i < len(aggregates) {
			agg = aggregates[i]
		}
		row := DetailRow(desc, agg)
		rows = append(rows, row)
		if open {
			acc = accumulate(acc, row)
		}
	}
	if open {
		st := finalize(acc)
		rows = append(rows, st)
		subtotals = append(subtotals, st)
	}

	rows = append(rows, GrandTotal(subtotals))
	return rows
}

// GrandTotal sums subtotal rows field by field.
func GrandTotal(subtotals []RekapRow) RekapRow {
	total := RekapRow{Kind: RowGrandTotal, Label: "TOTAL", GapDetails: []Entry{}}
	var pursuedSum, pursuedCount int64
	for _, st := range subtotals {
		total.CheckinCount += st.CheckinCount
		total.CheckinAmount += st.CheckinAmount
		total.CheckoutCount += st.CheckoutCount
		total.CheckoutAmount += st.CheckoutAmount
		total.ConfirmedCount += st.ConfirmedCount
		total.ConfirmedAmount += st.ConfirmedAmount
		total.AddedCount += st.AddedCount
		total.AddedAmount += st.AddedAmount
		total.GapCount += st.GapCount
		total.RemainderCount += st.RemainderCount
		total.RemainderAmount += st.RemainderAmount
		if st.Pursued > 0 {
			pursuedSum += st.Pursued
			pursuedCount++
		}
	}
	total.ConfirmedPct = percentage(total.ConfirmedCount, total.CheckoutCount)
	if pursuedCount > 0 {
		total.Pursued = roundHalfUp(float64(pursuedSum) / float64(pursuedCount))
	}
	return total
}
