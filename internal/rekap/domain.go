package rekap

import (
	"errors"
	"strings"
)

// TransactionRecord is one check-in (TL) or check-out (TI) event reported by an
// office endpoint.
type TransactionRecord struct {
	OfficeCode            string `json:"office_code"`
	CheckinDate           string `json:"checkin_date,omitempty"`
	CheckoutDate          string `json:"checkout_date,omitempty"`
	CheckinPlate          string `json:"checkin_plate,omitempty"`
	CheckoutPlate         string `json:"checkout_plate,omitempty"`
	CheckinAmount         int64  `json:"checkin_amount"`
	CheckoutAmount        int64  `json:"checkout_amount"`
	CheckinPlateCount     int64  `json:"checkin_plate_count"`
	CheckoutPlateCount    int64  `json:"checkout_plate_count"`
	CheckinMonthsAdvance  int64  `json:"checkin_months_advance"`
	CheckoutMonthsAdvance int64  `json:"checkout_months_advance"`
	ConversionNote        string `json:"conversion_note,omitempty"`
}

// OfficeDescriptor is one entry of an office table. A non-empty ParentGroup
// opens a new group that lasts until the next non-empty ParentGroup.
type OfficeDescriptor struct {
	Sequence     int    `json:"sequence"`
	ParentGroup  string `json:"parent_group,omitempty"`
	Name         string `json:"name"`
	Officer      string `json:"officer,omitempty"`
	Endpoint     string `json:"endpoint"`
	AnnualBudget int64  `json:"annual_budget,omitempty"`
}

// RowKind tags rows so the renderer can style them.
type RowKind string

const (
	// RowDetail is a single office row.
	RowDetail RowKind = "detail"
	// RowGroupHeader is the zero valued row that opens a group.
	RowGroupHeader RowKind = "group_header"
	// RowSubtotal closes a group.
	RowSubtotal RowKind = "subtotal"
	// RowGrandTotal sums every subtotal.
	RowGrandTotal RowKind = "grand_total"
)

// Conversion notes that classify a checkout as added.
const (
	NoteNewFleet      = "Armada Baru"
	NoteTransferredIn = "Mutasi Masuk"
	NoteOther         = "Lainnya"
)

// Entry is a per-plate listing used by gap and drill-down tables.
type Entry struct {
	Plate  string `json:"plate"`
	Note   string `json:"note,omitempty"`
	Amount int64  `json:"amount"`
	Date   string `json:"date,omitempty"`
}

// OfficeAggregate is the reconciliation result for one office and window.
type OfficeAggregate struct {
	CheckinCount    int64   `json:"checkin_count"`
	CheckinAmount   int64   `json:"checkin_amount"`
	CheckoutCount   int64   `json:"checkout_count"`
	CheckoutAmount  int64   `json:"checkout_amount"`
	ConfirmedCount  int64   `json:"confirmed_count"`
	ConfirmedAmount int64   `json:"confirmed_amount"`
	ConfirmedPct    float64 `json:"confirmed_pct"`
	AddedCount      int64   `json:"added_count"`
	AddedAmount     int64   `json:"added_amount"`
	Pursued         int64   `json:"pursued"`
	GapCount        int64   `json:"gap_count"`
	RemainderCount  int64   `json:"remainder_count"`
	RemainderAmount int64   `json:"remainder_amount"`

	GapDetails []Entry `json:"gap_details"`
	Confirmed  []Entry `json:"confirmed"`
	Added      []Entry `json:"added"`
	Remainder  []Entry `json:"remainder"`

	// ConversionNotes tallies in-window checkout records by conversion note.
	ConversionNotes map[string]Tally `json:"conversion_notes,omitempty"`

	Failed bool `json:"failed,omitempty"`
}

// Tally is a count/amount pair.
type Tally struct {
	Count  int64 `json:"count"`
	Amount int64 `json:"amount"`
}

// Add returns the field-wise sum of two tallies.
func (t Tally) Add(o Tally) Tally {
	return Tally{Count: t.Count + o.Count, Amount: t.Amount + o.Amount}
}

// ZeroAggregate is the aggregate of an office whose source could not be read.
func ZeroAggregate() OfficeAggregate {
	return OfficeAggregate{
		GapDetails: []Entry{},
		Confirmed:  []Entry{},
		Added:      []Entry{},
		Remainder:  []Entry{},
		Failed:     true,
	}
}

// RekapRow is one line of the rekap table.
type RekapRow struct {
	Kind            RowKind `json:"kind"`
	Sequence        int     `json:"sequence,omitempty"`
	Label           string  `json:"label"`
	Officer         string  `json:"officer,omitempty"`
	CheckinCount    int64   `json:"checkin_count"`
	CheckinAmount   int64   `json:"checkin_amount"`
	CheckoutCount   int64   `json:"checkout_count"`
	CheckoutAmount  int64   `json:"checkout_amount"`
	ConfirmedCount  int64   `json:"confirmed_count"`
	ConfirmedAmount int64   `json:"confirmed_amount"`
	ConfirmedPct    float64 `json:"confirmed_pct"`
	AddedCount      int64   `json:"added_count"`
	AddedAmount     int64   `json:"added_amount"`
	Pursued         int64   `json:"pursued"`
	GapCount        int64   `json:"gap_count"`
	RemainderCount  int64   `json:"remainder_count"`
	RemainderAmount int64   `json:"remainder_amount"`
	GapDetails      []Entry `json:"gap_details"`
	Failed          bool    `json:"failed,omitempty"`
}

// IsDetail reports whether the row describes a single office.
func (r RekapRow) IsDetail() bool { return r.Kind == RowDetail }

// IsTopLevelGroup reports whether a header row opens a KANWIL or CABANG group.
func (r RekapRow) IsTopLevelGroup() bool {
	if r.Kind != RowGroupHeader {
		return false
	}
	label := strings.ToUpper(strings.TrimSpace(r.Label))
	return strings.HasPrefix(label, "KANWIL ") || strings.HasPrefix(label, "CABANG ")
}

var (
	// ErrWindowRequired is returned when either bound of the window is missing.
	ErrWindowRequired = errors.New("rekap: start and end date required")
	// ErrTableNotFound is returned for an unknown office table.
	ErrTableNotFound = errors.New("rekap: office table not found")
	// ErrOfficeNotFound is returned when a sequence number is not in the table.
	ErrOfficeNotFound = errors.New("rekap: office not found")
)
