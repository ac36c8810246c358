package rekap

import (
	"math"
	"strings"
)

type category int

const (
	catRemainder category = iota
	catConfirmed
	catAdded
)

// plateUnit collects every in-window checkout record of one plate.
// unitKey groups checkout records by plate. Records without a plate stay
// separate units keyed by their index; record is -1 for real plates.
type unitKey struct {
	plate  string
	record int
}

type plateUnit struct {
	first  TransactionRecord
	amount int64
	cat    category
}

// Reconcile partitions the in-window checkout records of one office into
// added, confirmed and remainder plates and computes the office totals.
func Reconcile(records []TransactionRecord, window Window) OfficeAggregate {
	agg := OfficeAggregate{
		GapDetails:      []Entry{},
		Confirmed:       []Entry{},
		Added:           []Entry{},
		Remainder:       []Entry{},
		ConversionNotes: map[string]Tally{},
	}
	if !window.Complete() {
		return agg
	}

	checkinPlates := make(map[string]struct{})
	checkoutPlates := make(map[string]struct{})
	for _, rec := range records {
		if window.Contains(rec.CheckinDate) {
			agg.CheckinCount += plateCount(rec.CheckinPlateCount, rec.CheckinPlate)
			agg.CheckinAmount += rec.CheckinAmount
			if plate := normalizePlate(rec.CheckinPlate); plate != "" {
				checkinPlates[plate] = struct{}{}
			}
		}
		if window.Contains(rec.CheckoutDate) {
			if plate := normalizePlate(rec.CheckoutPlate); plate != "" {
				checkoutPlates[plate] = struct{}{}
			}
		}
	}

	units := make(map[unitKey]*plateUnit)
	order := make([]unitKey, 0)
	var advanceSum, advanceRecords int64
	for i, rec := range records {
		if !window.Contains(rec.CheckoutDate) {
			continue
		}
		agg.CheckoutCount += plateCount(rec.CheckoutPlateCount, rec.CheckoutPlate)
		agg.CheckoutAmount += rec.CheckoutAmount
		if rec.CheckoutMonthsAdvance > 0 {
			advanceSum += rec.CheckoutMonthsAdvance
			advanceRecords++
		}

		note := conversionLabel(rec.ConversionNote)
		agg.ConversionNotes[note] = agg.ConversionNotes[note].Add(Tally{Count: 1, Amount: rec.CheckoutAmount})

		plate := normalizePlate(rec.CheckoutPlate)
		key := unitKey{plate: plate, record: -1}
		if plate == "" {
			key.record = i
		}
		unit, ok := units[key]
		if !ok {
			unit = &plateUnit{first: rec, cat: catRemainder}
			units[key] = unit
			order = append(order, key)
		}
		unit.amount += rec.CheckoutAmount

		cat := catRemainder
		if isAddedNote(rec.ConversionNote) {
			cat = catAdded
		} else if _, matched := checkinPlates[plate]; matched && plate != "" {
			cat = catConfirmed
		}
		if cat > unit.cat {
			unit.cat = cat
		}
	}

	for _, key := range order {
		unit := units[key]
		entry := Entry{
			Plate:  strings.TrimSpace(unit.first.CheckoutPlate),
			Note:   unit.first.ConversionNote,
			Amount: unit.amount,
			Date:   unit.first.CheckoutDate,
		}
		switch unit.cat {
		case catAdded:
			agg.AddedCount++
			agg.AddedAmount += unit.amount
			agg.Added = append(agg.Added, entry)
		case catConfirmed:
			agg.ConfirmedCount++
			agg.ConfirmedAmount += unit.amount
			agg.Confirmed = append(agg.Confirmed, entry)
		default:
			agg.RemainderCount++
			agg.RemainderAmount += unit.amount
			agg.Remainder = append(agg.Remainder, entry)
		}
	}

	// The divisor is the total checkout count, not the number of advance
	// paying records.
	if advanceRecords > 0 && agg.CheckoutCount > 0 {
		agg.Pursued = roundHalfUp(float64(advanceSum) / float64(agg.CheckoutCount))
	}

	for _, rec := range records {
		if !window.Contains(rec.CheckinDate) {
			continue
		}
		plate := normalizePlate(rec.CheckinPlate)
		if _, ok := checkoutPlates[plate]; ok && plate != "" {
			continue
		}
		agg.GapDetails = append(agg.GapDetails, Entry{
			Plate:  strings.TrimSpace(rec.CheckinPlate),
			Note:   rec.ConversionNote,
			Amount: rec.CheckinAmount,
			Date:   rec.CheckinDate,
		})
	}

	agg.ConfirmedPct = percentage(agg.ConfirmedCount, agg.CheckinCount)
	agg.GapCount = agg.CheckinCount - agg.ConfirmedCount
	return agg
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// plateCount treats a record that names a plate but carries no count as one
// plate movement.
func plateCount(n int64, plate string) int64 {
	if n > 0 {
		return n
	}
	if strings.TrimSpace(plate) != "" {
		return 1
	}
	return 0
}

func isAddedNote(note string) bool {
	n := strings.TrimSpace(note)
	return strings.EqualFold(n, NoteNewFleet) || strings.EqualFold(n, NoteTransferredIn)
}

func conversionLabel(note string) string {
	if n := strings.TrimSpace(note); n != "" {
		return n
	}
	return NoteOther
}

func percentage(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
