package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var kesPrinter = message.NewPrinter(language.English)

// FormatKES renders an amount as a human-readable KES figure with thousands
// separators, e.g. "KES 10,050.00". Used in audit descriptions and receipts.
func FormatKES(amount float64) string {
	return kesPrinter.Sprintf("KES %.2f", amount)
}
