// =============================================================================
// Trip Dashboard - Trip Model
// =============================================================================
//
// This package reconstructs trips from raw transaction rows. A ride-service
// export lists one row per ledger line, so a single ride with a tip shows up
// as two rows (Fare and Tip). Rows that share the identity key
// (date, time, service, city, pickup, drop-off) are merged into one Trip.
//
// PIPELINE:
//   1. Normalize: data rows -> trips (merged, sorted newest first)
//   2. GroupByDay: trips -> days (newest day first, trips oldest first)
//   3. Summarize: days -> KPIs
//
// Amounts are decimal.Decimal so merged totals never depend on row order.
//
// =============================================================================

package trips

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATA STRUCTURES
// =============================================================================

// Transaction is one ledger line belonging to a trip, e.g. "Fare" or "Tip".
type Transaction struct {
	Type  string          `json:"type"`
	Local decimal.Decimal `json:"local"`
	EUR   decimal.Decimal `json:"eur"`
}

// Trip is a ride reconciled from one or more transaction rows.
type Trip struct {
	// ID is assigned sequentially from 1 in CSV encounter order. It is only
	// stable within one parse.
	ID int `json:"id"`

	// DateKey is the ISO request date (YYYY-MM-DD, UTC).
	DateKey string `json:"dateKey"`

	// Time is the original 12-hour request time string (UTC).
	Time string `json:"time"`

	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	EmployeeID string `json:"employeeId"`
	Service    string `json:"service"`
	City       string `json:"city"`
	Pickup     string `json:"pickup"`
	Dropoff    string `json:"dropoff"`

	// TotalLocal and TotalEUR are the sums of the transaction amounts.
	TotalLocal decimal.Decimal `json:"totalLocal"`
	TotalEUR   decimal.Decimal `json:"totalEur"`

	// Transactions are kept in CSV encounter order.
	Transactions []Transaction `json:"transactions"`
}

// Timestamp combines the trip's date and 12-hour time into a UTC instant.
// ok is false when the time string cannot be parsed.
func (t *Trip) Timestamp() (ts time.Time, ok bool) {
	return Timestamp(t.DateKey, t.Time)
}

// key returns the merge identity of the trip.
func (t *Trip) key() string {
	return strings.Join([]string{t.DateKey, t.Time, t.Service, t.City, t.Pickup, t.Dropoff}, "||")
}

// addTransaction appends a ledger line and accumulates both totals.
func (t *Trip) addTransaction(tx Transaction) {
	t.Transactions = append(t.Transactions, tx)
	t.TotalLocal = t.TotalLocal.Add(tx.Local)
	t.TotalEUR = t.TotalEUR.Add(tx.EUR)
}

// =============================================================================
// FIELD PARSERS
// =============================================================================

var (
	usDatePattern  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	time12hPattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
	amountPattern  = regexp.MustCompile(`^-?(?:\d+(?:\.\d*)?|\.\d+)`)
	amountStrip    = regexp.MustCompile(`[^0-9.\-]`)
)

// ParseUSDate converts MM/DD/YYYY to an ISO date key. Dates that do not
// exist on the calendar (02/30/2024) are rejected.
func ParseUSDate(raw string) (string, bool) {
	if !usDatePattern.MatchString(raw) {
		return "", false
	}
	date, err := time.Parse("01/02/2006", raw)
	if err != nil {
		return "", false
	}
	return date.Format("2006-01-02"), true
}

// ParseAmount strips everything except digits, dots and minus signs and
// reads the leading number. Anything unreadable is zero.
//
// EXAMPLES:
//   - "€1,234.56" -> 1234.56
//   - "-12.50 EUR" -> -12.50
//   - "n/a" -> 0
func ParseAmount(raw string) decimal.Decimal {
	cleaned := amountStrip.ReplaceAllString(raw, "")
	number := amountPattern.FindString(cleaned)
	number = strings.TrimSuffix(number, ".")
	if number == "" || number == "-" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(number)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// ParseTime converts a 12-hour clock string ("2:30PM", "12:05 am") to a
// 24-hour hour and minute.
func ParseTime(raw string) (hour, minute int, ok bool) {
	match := time12hPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return 0, 0, false
	}

	hour, _ = strconv.Atoi(match[1])
	minute, _ = strconv.Atoi(match[2])
	if hour > 12 || minute > 59 {
		return 0, 0, false
	}

	switch strings.ToUpper(match[3]) {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	return hour, minute, true
}

// Timestamp combines an ISO date key and a 12-hour time into a UTC instant.
func Timestamp(dateKey, time12h string) (time.Time, bool) {
	hour, minute, ok := ParseTime(time12h)
	if !ok {
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return time.Time{}, false
	}
	return date.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute), true
}

// compareTimestamps orders two trips by timestamp; trips whose time cannot be
// parsed compare after every parsed trip and equal to each other.
func compareTimestamps(a, b *Trip) int {
	tsA, okA := a.Timestamp()
	tsB, okB := b.Timestamp()
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	return tsA.Compare(tsB)
}
