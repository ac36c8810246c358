// Package numfmt formats numbers the Indonesian way for reports.
package numfmt

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Indonesian)

// Int renders n with dot thousand separators, e.g. 1.234.567.
func Int(n int64) string {
	return printer.Sprintf("%d", n)
}

// Rupiah renders n as "Rp 1.234.567".
func Rupiah(n int64) string {
	if n < 0 {
		return "-Rp " + Int(-n)
	}
	return "Rp " + Int(n)
}

// Decimal renders d rounded to whole rupiah.
func Decimal(d decimal.Decimal) string {
	return Rupiah(d.Round(0).IntPart())
}

// Percent renders v with two decimals and a comma separator, e.g. 76,50%.
func Percent(v float64) string {
	return printer.Sprintf("%.2f%%", v)
}
