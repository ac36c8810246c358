package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
)

const (
	sheetRekap    = "Rekap"
	sheetAnggaran = "Anggaran"
	sheetGap      = "Gap"
)

type xlsxStyles struct {
	header   int
	group    int
	subtotal int
	total    int
}

func newStyles(f *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	if s.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill("#D9E1F2")}); err != nil {
		return s, err
	}
	if s.group, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Italic: true}}); err != nil {
		return s, err
	}
	if s.subtotal, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill("#FFF2CC")}); err != nil {
		return s, err
	}
	if s.total, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill("#F8CBAD")}); err != nil {
		return s, err
	}
	return s, nil
}

func (s xlsxStyles) forKind(kind rekap.RowKind) int {
	switch kind {
	case rekap.RowGroupHeader:
		return s.group
	case rekap.RowSubtotal:
		return s.subtotal
	case rekap.RowGrandTotal:
		return s.total
	default:
		return 0
	}
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return err
	}
	if style != 0 {
		return f.SetRowStyle(sheet, row, row, style)
	}
	return nil
}

func headerValues(header []string) []interface{} {
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	return values
}

func rekapValues(row rekap.RekapRow) []interface{} {
	if row.Kind == rekap.RowGroupHeader {
		return []interface{}{"", row.Label}
	}
	var seq interface{} = ""
	if row.Sequence != 0 {
		seq = row.Sequence
	}
	return []interface{}{
		seq, row.Label, row.Officer,
		row.CheckinCount, row.CheckinAmount,
		row.CheckoutCount, row.CheckoutAmount,
		row.ConfirmedCount, row.ConfirmedAmount, roundPct(row.ConfirmedPct),
		row.AddedCount, row.AddedAmount,
		row.Pursued, row.GapCount,
		row.RemainderCount, row.RemainderAmount,
	}
}

func anggaranValues(row rekap.AnggaranRow) []interface{} {
	if row.Kind == rekap.RowGroupHeader {
		return []interface{}{"", row.Label}
	}
	var seq interface{} = ""
	if row.Sequence != 0 {
		seq = row.Sequence
	}
	return []interface{}{
		seq, row.Label,
		row.AnnualBudget.IntPart(), row.Target.InexactFloat64(),
		row.Prior.IntPart(), row.Current.IntPart(),
		row.Realization.String(), row.GapPct.String(), row.GapAmount.InexactFloat64(),
		row.GrowthPct.String(), row.GrowthAmount.InexactFloat64(),
	}
}

func roundPct(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// WriteXLSX renders the rekap, budget and gap tables as one workbook.
func WriteXLSX(w io.Writer, report rekap.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("xlsx styles: %w", err)
	}
	if err := f.SetSheetName("Sheet1", sheetRekap); err != nil {
		return err
	}
	if err := writeRekapSheet(f, styles, report); err != nil {
		return fmt.Errorf("xlsx %s: %w", sheetRekap, err)
	}
	if _, err := f.NewSheet(sheetAnggaran); err != nil {
		return err
	}
	if err := writeAnggaranSheet(f, styles, report); err != nil {
		return fmt.Errorf("xlsx %s: %w", sheetAnggaran, err)
	}
	if _, err := f.NewSheet(sheetGap); err != nil {
		return err
	}
	if err := writeGapSheet(f, styles, report); err != nil {
		return fmt.Errorf("xlsx %s: %w", sheetGap, err)
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRekapSheet(f *excelize.File, styles xlsxStyles, report rekap.Report) error {
	if err := setRow(f, sheetRekap, 1, []interface{}{"Periode", report.Start + " s.d. " + report.End, "Tabel", report.Table}, 0); err != nil {
		return err
	}
	if err := setRow(f, sheetRekap, 2, headerValues(RekapHeader), styles.header); err != nil {
		return err
	}
	for i, row := range report.Rows {
		if err := setRow(f, sheetRekap, i+3, rekapValues(row), styles.forKind(row.Kind)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetRekap, "B", "B", 32); err != nil {
		return err
	}
	return f.SetColWidth(sheetRekap, "C", "C", 20)
}

func writeAnggaranSheet(f *excelize.File, styles xlsxStyles, report rekap.Report) error {
	if err := setRow(f, sheetAnggaran, 1, headerValues(AnggaranHeader), styles.header); err != nil {
		return err
	}
	for i, row := range report.Anggaran {
		if err := setRow(f, sheetAnggaran, i+2, anggaranValues(row), styles.forKind(row.Kind)); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetAnggaran, "B", "B", 32)
}

func writeGapSheet(f *excelize.File, styles xlsxStyles, report rekap.Report) error {
	if err := setRow(f, sheetGap, 1, []interface{}{"Loket/Samsat", "Nopol", "Keterangan", "Nominal", "Tanggal"}, styles.header); err != nil {
		return err
	}
	line := 2
	for _, row := range report.Rows {
		if !row.IsDetail() {
			continue
		}
		for _, gap := range row.GapDetails {
			if err := setRow(f, sheetGap, line, []interface{}{row.Label, gap.Plate, gap.Note, gap.Amount, gap.Date}, 0); err != nil {
				return err
			}
			line++
		}
	}
	return f.SetColWidth(sheetGap, "A", "A", 32)
}
