package rekap

import "sort"

// ConversionRow is one line of the conversion recap: in-window checkouts
// tallied by conversion note.
type ConversionRow struct {
	Kind     RowKind          `json:"kind"`
	Sequence int              `json:"sequence,omitempty"`
	Label    string           `json:"label"`
	Notes    map[string]Tally `json:"notes"`
	Total    Tally            `json:"total"`
	Failed   bool             `json:"failed,omitempty"`
}

// Tally returns the tally for note, zero when absent.
func (r ConversionRow) Tally(note string) Tally {
	return r.Notes[note]
}

func (r ConversionRow) merge(o ConversionRow) ConversionRow {
	for note, t := range o.Notes {
		r.Notes[note] = r.Notes[note].Add(t)
	}
	r.Total = r.Total.Add(o.Total)
	return r
}

// ConversionNotes lists every note seen in the aggregates, sorted.
func ConversionNotes(aggregates []OfficeAggregate) []string {
	seen := make(map[string]struct{})
	for _, agg := range aggregates {
		for note := range agg.ConversionNotes {
			seen[note] = struct{}{}
		}
	}
	notes := make([]string, 0, len(seen))
	for note := range seen {
		notes = append(notes, note)
	}
	sort.Strings(notes)
	return notes
}

// Conversion builds the conversion recap with the same grouping as Rollup.
func Conversion(descriptors []OfficeDescriptor, aggregates []OfficeAggregate) []ConversionRow {
	rows := make([]ConversionRow, 0, len(descriptors)*2+1)
	total := ConversionRow{Kind: RowGrandTotal, Label: "TOTAL", Notes: map[string]Tally{}}

	var acc ConversionRow
	open := false
	closeGroup := func() {
		rows = append(rows, acc)
		total = total.merge(acc)
	}
	for i, desc := range descriptors {
		if desc.ParentGroup != "" {
			if open {
				closeGroup()
			}
			rows = append(rows, ConversionRow{Kind: RowGroupHeader, Label: desc.ParentGroup, Notes: map[string]Tally{}})
			acc = ConversionRow{Kind: RowSubtotal, Label: "SUB TOTAL " + desc.ParentGroup, Notes: map[string]Tally{}}
			open = true
		}
		row := ConversionRow{Kind: RowDetail, Sequence: desc.Sequence, Label: desc.Name, Notes: map[string]Tally{}}
		if i < len(aggregates) {
			for note, t := range aggregates[i].ConversionNotes {
				row.Notes[note] = t
				row.Total = row.Total.Add(t)
			}
			row.Failed = aggregates[i].Failed
		}
		rows = append(rows, row)
		if open {
			acc = acc.merge(row)
		}
	}
	if open {
		closeGroup()
	}
	return append(rows, total)
}
