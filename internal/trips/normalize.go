package trips

import (
	"slices"

	"github.com/ginjaninja78/trip-dashboard/internal/csvparser"
)

// Column positions within a data row, matching csvparser.ExpectedHeader.
const (
	colDate = iota
	colTime
	colFirstName
	colLastName
	colEmployeeID
	colService
	colCity
	colPickup
	colDropoff
	colTransactionType
	colLocalAmount
	colEURAmount
)

// DropReason says why a data row did not become part of a trip.
type DropReason string

const (
	// DropMissingField marks rows without a date, time, pickup or drop-off.
	DropMissingField DropReason = "missing_field"

	// DropBadDate marks rows whose date is not a valid MM/DD/YYYY date.
	DropBadDate DropReason = "bad_date"

	// DropShortRow marks rows with fewer cells than the header.
	DropShortRow DropReason = "short_row"
)

// Report counts what Normalize did with its input rows.
type Report struct {
	// Rows is the number of data rows examined.
	Rows int

	// Merged is the number of rows folded into an existing trip.
	Merged int

	// Dropped counts skipped rows by reason.
	Dropped map[DropReason]int
}

// DroppedTotal returns the number of rows skipped for any reason.
func (r Report) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Normalize converts header-matched data rows into trips.
//
// PARAMETERS:
//   - rows: Data rows as returned by csvparser.FindDataRows.
//
// RETURNS:
//   - Trips sorted newest first. Trips whose time cannot be parsed come last,
//     in encounter order.
//   - A Report describing merged and dropped rows. Dropped rows are never an
//     error.
//
// MERGE RULES:
//   The first row with a given (date, time, service, city, pickup, drop-off)
//   creates a trip with the next ID. Later rows with the same key append a
//   Transaction and add to both totals.
func Normalize(rows [][]string) ([]*Trip, Report) {
	report := Report{Dropped: make(map[DropReason]int)}
	byKey := make(map[string]*Trip)
	var trips []*Trip
	nextID := 1

	for _, row := range rows {
		report.Rows++

		trip, tx, reason := rowToTrip(row)
		if reason != "" {
			report.Dropped[reason]++
			continue
		}

		key := trip.key()
		if existing, found := byKey[key]; found {
			existing.addTransaction(tx)
			report.Merged++
			continue
		}

		trip.ID = nextID
		nextID++
		trip.addTransaction(tx)
		byKey[key] = trip
		trips = append(trips, trip)
	}

	slices.SortStableFunc(trips, newestFirst)
	return trips, report
}

// rowToTrip reads one data row. A non-empty reason means the row is dropped.
func rowToTrip(row []string) (*Trip, Transaction, DropReason) {
	if len(row) < len(csvparser.ExpectedHeader) {
		return nil, Transaction{}, DropShortRow
	}

	if row[colDate] == "" || row[colTime] == "" || row[colPickup] == "" || row[colDropoff] == "" {
		return nil, Transaction{}, DropMissingField
	}

	dateKey, ok := ParseUSDate(row[colDate])
	if !ok {
		return nil, Transaction{}, DropBadDate
	}

	trip := &Trip{
		DateKey:    dateKey,
		Time:       row[colTime],
		FirstName:  row[colFirstName],
		LastName:   row[colLastName],
		EmployeeID: row[colEmployeeID],
		Service:    row[colService],
		City:       row[colCity],
		Pickup:     row[colPickup],
		Dropoff:    row[colDropoff],
	}
	tx := Transaction{
		Type:  row[colTransactionType],
		Local: ParseAmount(row[colLocalAmount]),
		EUR:   ParseAmount(row[colEURAmount]),
	}
	return trip, tx, ""
}

func newestFirst(a, b *Trip) int {
	tsA, okA := a.Timestamp()
	tsB, okB := b.Timestamp()
	if okA && okB {
		return tsB.Compare(tsA)
	}
	return compareTimestamps(a, b)
}
