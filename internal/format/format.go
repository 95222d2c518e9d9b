// Package format renders amounts and dates for display the way the
// dashboard shows them: en-US grouping, euro prefix and short day labels.
package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ginjaninja78/trip-dashboard/internal/trips"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// EUR formats an amount as "€1,234.56" (negative: "-€12.50").
func EUR(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + "€" + printer.Sprintf("%.2f", rounded.InexactFloat64())
}

// Day formats an ISO date key as "Mon, Jan 15, 2024". Keys that are not
// valid dates are returned unchanged.
func Day(dateKey string) string {
	date, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return dateKey
	}
	return date.Format("Mon, Jan 2, 2006")
}

// Transactions lists a trip's ledger lines as "Fare: €10.00 · Tip: €2.00".
func Transactions(txs []trips.Transaction) string {
	parts := make([]string, 0, len(txs))
	for _, tx := range txs {
		parts = append(parts, tx.Type+": "+EUR(tx.EUR))
	}
	return strings.Join(parts, " · ")
}

// Count formats an integer with en-US grouping.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}
