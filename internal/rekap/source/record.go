package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
)

// number accepts JSON numbers, numeric strings ("150.000", "150000") and null.
type number int64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := parseNumber(s)
		if err != nil {
			return err
		}
		*n = number(v)
		return nil
	}
	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*n = number(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	v, err := truncate(f)
	if err != nil {
		return err
	}
	*n = number(v)
	return nil
}

// truncate drops the fraction of f, rejecting values int64 cannot hold.
func truncate(f float64) (int64, error) {
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("source: number %g out of range", f)
	}
	return int64(f), nil
}

// parseNumber reads plain or dot-grouped integers; a comma starts the
// fractional part and is dropped.
func parseNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, nil
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	if strings.Count(s, ".") > 1 || (strings.Contains(s, ".") && len(s)-strings.LastIndexByte(s, '.') == 4) {
		s = strings.ReplaceAll(s, ".", "")
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("source: invalid number %q", s)
	}
	return truncate(f)
}

// wireRecord is the record shape served by the office endpoints.
type wireRecord struct {
	KodeLoket     string `json:"kode_loket"`
	TglTL         string `json:"tgl_tl"`
	TglTI         string `json:"tgl_ti"`
	NopolTL       string `json:"nopol_tl"`
	NopolTI       string `json:"nopol_ti"`
	NominalTL     number `json:"nominal_tl"`
	NominalTI     number `json:"nominal_ti"`
	JumlahNopolTL number `json:"jml_nopol_tl"`
	JumlahNopolTI number `json:"jml_nopol_ti"`
	BulanMajuTL   number `json:"bulan_maju_tl"`
	BulanMajuTI   number `json:"bulan_maju_ti"`
	KetKonversi   string `json:"ket_konversi"`
}

func (w wireRecord) toRecord() rekap.TransactionRecord {
	return rekap.TransactionRecord{
		OfficeCode:            strings.TrimSpace(w.KodeLoket),
		CheckinDate:           strings.TrimSpace(w.TglTL),
		CheckoutDate:          strings.TrimSpace(w.TglTI),
		CheckinPlate:          w.NopolTL,
		CheckoutPlate:         w.NopolTI,
		CheckinAmount:         int64(w.NominalTL),
		CheckoutAmount:        int64(w.NominalTI),
		CheckinPlateCount:     int64(w.JumlahNopolTL),
		CheckoutPlateCount:    int64(w.JumlahNopolTI),
		CheckinMonthsAdvance:  int64(w.BulanMajuTL),
		CheckoutMonthsAdvance: int64(w.BulanMajuTI),
		ConversionNote:        strings.TrimSpace(w.KetKonversi),
	}
}

type envelope struct {
	Data []wireRecord `json:"data"`
}
