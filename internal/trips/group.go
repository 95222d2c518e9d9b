package trips

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Totals are the summed amounts of a set of trips.
type Totals struct {
	Local decimal.Decimal `json:"local"`
	EUR   decimal.Decimal `json:"eur"`
}

// Day holds the trips of one UTC calendar date.
type Day struct {
	DateKey string  `json:"dateKey"`
	Trips   []*Trip `json:"trips"`
	Totals  Totals  `json:"totals"`
}

// GroupByDay partitions trips by date key.
//
// RETURNS:
//   - Days ordered newest date first. Within a day trips are ordered oldest
//     first, with unparseable times last.
func GroupByDay(trips []*Trip) []*Day {
	byKey := make(map[string]*Day)
	var days []*Day

	for _, trip := range trips {
		day, found := byKey[trip.DateKey]
		if !found {
			day = &Day{DateKey: trip.DateKey}
			byKey[trip.DateKey] = day
			days = append(days, day)
		}
		day.Trips = append(day.Trips, trip)
		day.Totals.Local = day.Totals.Local.Add(trip.TotalLocal)
		day.Totals.EUR = day.Totals.EUR.Add(trip.TotalEUR)
	}

	for _, day := range days {
		slices.SortStableFunc(day.Trips, compareTimestamps)
	}

	slices.SortFunc(days, func(a, b *Day) int {
		return strings.Compare(b.DateKey, a.DateKey)
	})
	return days
}

// FindDay returns the day with the given date key, or nil.
func FindDay(days []*Day, dateKey string) *Day {
	for _, day := range days {
		if day.DateKey == dateKey {
			return day
		}
	}
	return nil
}

// TripNumbers maps trip IDs to their 1-based position in the day.
func (d *Day) TripNumbers() map[int]int {
	numbers := make(map[int]int, len(d.Trips))
	for i, trip := range d.Trips {
		numbers[trip.ID] = i + 1
	}
	return numbers
}

// =============================================================================
// BREAKDOWN AND KPIS
// =============================================================================

// Breakdown splits a day's EUR total into fares and tips.
type Breakdown struct {
	Fare  decimal.Decimal `json:"fare"`
	Tip   decimal.Decimal `json:"tip"`
	Total decimal.Decimal `json:"total"`
}

// Breakdown classifies each transaction by its type: anything containing
// "fare" counts as fare, otherwise anything containing "tip" counts as tip.
// Other types only contribute to the total.
func (d *Day) Breakdown() Breakdown {
	b := Breakdown{Total: d.Totals.EUR}
	for _, trip := range d.Trips {
		for _, tx := range trip.Transactions {
			kind := strings.ToLower(tx.Type)
			switch {
			case strings.Contains(kind, "fare"):
				b.Fare = b.Fare.Add(tx.EUR)
			case strings.Contains(kind, "tip"):
				b.Tip = b.Tip.Add(tx.EUR)
			}
		}
	}
	return b
}

// KPIs summarise every loaded day.
type KPIs struct {
	Days     int             `json:"days"`
	Trips    int             `json:"trips"`
	TotalEUR decimal.Decimal `json:"totalEur"`
	AvgEUR   decimal.Decimal `json:"avgEur"`
}

// Summarize computes the KPIs for a day collection.
func Summarize(days []*Day) KPIs {
	k := KPIs{Days: len(days)}
	for _, day := range days {
		k.Trips += len(day.Trips)
		k.TotalEUR = k.TotalEUR.Add(day.Totals.EUR)
	}
	if k.Trips > 0 {
		k.AvgEUR = k.TotalEUR.Div(decimal.NewFromInt(int64(k.Trips)))
	}
	return k
}

// LoadStatus is the message shown after a successful load.
func (k KPIs) LoadStatus() string {
	return fmt.Sprintf("Loaded %d trips across %d day(s).", k.Trips, k.Days)
}
