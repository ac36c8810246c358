// Package export renders rekap reports as CSV, XLSX and PDF documents.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
)

// RekapHeader is the column layout shared by the CSV and XLSX exports.
var RekapHeader = []string{
	"No", "Loket/Samsat", "Petugas",
	"TL (Nopol)", "TL (Rp)", "TI (Nopol)", "TI (Rp)",
	"Memastikan (Nopol)", "Memastikan (Rp)", "Memastikan (%)",
	"Menambahkan (Nopol)", "Menambahkan (Rp)",
	"Mengupayakan (Bulan)", "Gap", "Sisa (Nopol)", "Sisa (Rp)",
}

// AnggaranHeader is the column layout of the budget export.
var AnggaranHeader = []string{
	"No", "Loket/Samsat", "Anggaran 1 Tahun", "Target s.d. Bulan Ini",
	"Penerimaan Lalu", "Penerimaan Kini", "Realisasi (%)",
	"Gap (%)", "Gap (Rp)", "Pertumbuhan (%)", "Pertumbuhan (Rp)",
}

func sequence(seq int) string {
	if seq == 0 {
		return ""
	}
	return strconv.Itoa(seq)
}

func i64(v int64) string { return strconv.FormatInt(v, 10) }

func pct(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// RekapRecord flattens a rekap row into export cells.
func RekapRecord(row rekap.RekapRow) []string {
	if row.Kind == rekap.RowGroupHeader {
		return []string{"", row.Label}
	}
	return []string{
		sequence(row.Sequence), row.Label, row.Officer,
		i64(row.CheckinCount), i64(row.CheckinAmount),
		i64(row.CheckoutCount), i64(row.CheckoutAmount),
		i64(row.ConfirmedCount), i64(row.ConfirmedAmount), pct(row.ConfirmedPct),
		i64(row.AddedCount), i64(row.AddedAmount),
		i64(row.Pursued), i64(row.GapCount),
		i64(row.RemainderCount), i64(row.RemainderAmount),
	}
}

// AnggaranRecord flattens a budget row into export cells.
func AnggaranRecord(row rekap.AnggaranRow) []string {
	if row.Kind == rekap.RowGroupHeader {
		return []string{"", row.Label}
	}
	return []string{
		sequence(row.Sequence), row.Label,
		row.AnnualBudget.StringFixed(0), row.Target.StringFixed(0),
		row.Prior.StringFixed(0), row.Current.StringFixed(0),
		row.Realization.String(), row.GapPct.String(), row.GapAmount.StringFixed(0),
		row.GrowthPct.String(), row.GrowthAmount.StringFixed(0),
	}
}

// WriteRekapCSV serialises the rekap table.
func WriteRekapCSV(w io.Writer, report rekap.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Periode", report.Start + " s.d. " + report.End}); err != nil {
		return err
	}
	if err := writer.Write(RekapHeader); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := writer.Write(RekapRecord(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteAnggaranCSV serialises the budget realization table.
func WriteAnggaranCSV(w io.Writer, report rekap.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(AnggaranHeader); err != nil {
		return err
	}
	for _, row := range report.Anggaran {
		if err := writer.Write(AnggaranRecord(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteGapCSV lists the gap details of every office.
func WriteGapCSV(w io.Writer, report rekap.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Loket/Samsat", "Nopol", "Keterangan", "Nominal", "Tanggal"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if !row.IsDetail() {
			continue
		}
		for _, gap := range row.GapDetails {
			if err := writer.Write([]string{row.Label, gap.Plate, gap.Note, i64(gap.Amount), gap.Date}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
