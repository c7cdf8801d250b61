package parts

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseNumber reads a quantity, price or percentage as printed by spreadsheets.
// With decimalComma "1.234,56" is 1234.56; otherwise "1,234.56" is. Currency and
// percent signs are ignored.
func parseNumber(s string, decimalComma bool) (decimal.Decimal, error) {
	clean := strings.NewReplacer("€", "", "%", "", " ", "", "\u00a0", "").Replace(s)

	if decimalComma {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
