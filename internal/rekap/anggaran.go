package rekap

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Percent is a ratio rendered the way the budget report prints it.
type Percent struct {
	Value    decimal.Decimal `json:"value"`
	Infinite bool            `json:"infinite,omitempty"`
}

// String renders "12.34%", or "∞" for growth against a zero base.
func (p Percent) String() string {
	if p.Infinite {
		return "∞"
	}
	return p.Value.StringFixed(2) + "%"
}

// MarshalJSON keeps the rendered form in JSON payloads.
func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value    string `json:"value"`
		Infinite bool   `json:"infinite,omitempty"`
		Display  string `json:"display"`
	}{Value: p.Value.StringFixed(2), Infinite: p.Infinite, Display: p.String()})
}

// UnmarshalJSON restores a Percent encoded by MarshalJSON.
func (p *Percent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value    string `json:"value"`
		Infinite bool   `json:"infinite"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Infinite = raw.Infinite
	if raw.Value == "" {
		p.Value = decimal.Zero
		return nil
	}
	v, err := decimal.NewFromString(raw.Value)
	if err != nil {
		return err
	}
	p.Value = v
	return nil
}

// Float returns the numeric value; infinite percents report 0.
func (p Percent) Float() float64 {
	if p.Infinite {
		return 0
	}
	return p.Value.InexactFloat64()
}

// AnggaranRow is one line of the budget realization report.
type AnggaranRow struct {
	Kind         RowKind         `json:"kind"`
	Sequence     int             `json:"sequence,omitempty"`
	Label        string          `json:"label"`
	AnnualBudget decimal.Decimal `json:"annual_budget"`
	Target       decimal.Decimal `json:"target"`
	Prior        decimal.Decimal `json:"prior"`
	Current      decimal.Decimal `json:"current"`
	Realization  Percent         `json:"realization"`
	GapPct       Percent         `json:"gap_pct"`
	GapAmount    decimal.Decimal `json:"gap_amount"`
	GrowthPct    Percent         `json:"growth_pct"`
	GrowthAmount decimal.Decimal `json:"growth_amount"`
	Failed       bool            `json:"failed,omitempty"`
}

// ratio divides num by den as a percentage. A zero den yields 0.00%, or ∞
// when infiniteOnZero is set and num is positive.
func ratio(num, den decimal.Decimal, infiniteOnZero bool) Percent {
	if den.IsZero() {
		if infiniteOnZero && num.IsPositive() {
			return Percent{Infinite: true}
		}
		return Percent{Value: decimal.Zero}
	}
	return Percent{Value: num.Div(den).Mul(hundred).Round(2)}
}

// BudgetFigures computes the derived fields of a row from its base amounts.
func BudgetFigures(row AnggaranRow) AnggaranRow {
	row.Realization = ratio(row.Current, row.AnnualBudget, false)
	row.GapAmount = row.Current.Sub(row.Target)
	row.GapPct = ratio(row.GapAmount, row.Target, true)
	row.GrowthAmount = row.Current.Sub(row.Prior)
	row.GrowthPct = ratio(row.GrowthAmount, row.Prior, true)
	return row
}

// TargetToDate prorates the annual budget over the elapsed months.
func TargetToDate(annual int64, monthsElapsed int) decimal.Decimal {
	if monthsElapsed < 0 {
		monthsElapsed = 0
	}
	return decimal.NewFromInt(annual).Div(twelve).Mul(decimal.NewFromInt(int64(monthsElapsed))).Round(2)
}

// MonthsElapsed is the 1-based month of the window end, 0 without one.
func MonthsElapsed(w Window) int {
	if w.End == nil {
		return 0
	}
	return int(w.End.Month)
}

type anggaranAcc struct {
	row AnggaranRow
}

func (a anggaranAcc) add(row AnggaranRow) anggaranAcc {
	a.row.AnnualBudget = a.row.AnnualBudget.Add(row.AnnualBudget)
	a.row.Target = a.row.Target.Add(row.Target)
	a.row.Prior = a.row.Prior.Add(row.Prior)
	a.row.Current = a.row.Current.Add(row.Current)
	return a
}

// close recomputes percentages from the summed amounts. Gap and growth
// amounts equal the sums of the members' amounts since both are linear.
func (a anggaranAcc) close() AnggaranRow {
	return BudgetFigures(a.row)
}

func newAnggaranAcc(kind RowKind, label string) anggaranAcc {
	zero := decimal.Zero
	return anggaranAcc{row: AnggaranRow{Kind: kind, Label: label, AnnualBudget: zero, Target: zero, Prior: zero, Current: zero}}
}

// Anggaran builds the budget realization table. Prior receipts are the
// in-window check-in amounts, current receipts the in-window check-out
// amounts.
func Anggaran(descriptors []OfficeDescriptor, aggregates []OfficeAggregate, window Window) []AnggaranRow {
	months := MonthsElapsed(window)
	rows := make([]AnggaranRow, 0, len(descriptors)*2+1)
	subtotals := make([]AnggaranRow, 0)

	var acc anggaranAcc
	open := false
	for i, desc := range descriptors {
		if desc.ParentGroup != "" {
			if open {
				st := acc.close()
				rows = append(rows, st)
				subtotals = append(subtotals, st)
			}
			rows = append(rows, newAnggaranAcc(RowGroupHeader, desc.ParentGroup).close())
			acc = newAnggaranAcc(RowSubtotal, "SUB TOTAL "+desc.ParentGroup)
			open = true
		}
		agg := OfficeAggregate{}
		if i < len(aggregates) {
			agg = aggregates[i]
		}
		row := BudgetFigures(AnggaranRow{
			Kind:         RowDetail,
			Sequence:     desc.Sequence,
			Label:        desc.Name,
			AnnualBudget: decimal.NewFromInt(desc.AnnualBudget),
			Target:       TargetToDate(desc.AnnualBudget, months),
			Prior:        decimal.NewFromInt(agg.CheckinAmount),
			Current:      decimal.NewFromInt(agg.CheckoutAmount),
			Failed:       agg.Failed,
		})
		rows = append(rows, row)
		if open {
			acc = acc.add(row)
		}
	}
	if open {
		st := acc.close()
		rows = append(rows, st)
		subtotals = append(subtotals, st)
	}

	total := newAnggaranAcc(RowGrandTotal, "TOTAL")
	for _, st := range subtotals {
		total = total.add(st)
	}
	rows = append(rows, total.close())
	return rows
}
