package retailer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var priceRegex = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParsePrice finds the first number in s, dropping thousands separators.
// "List Price: $1,079.00" parses as 1079.00.
func ParsePrice(s string) (decimal.NullDecimal, bool) {
	found := priceRegex.FindString(s)
	if found == "" {
		return decimal.NullDecimal{}, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(found, ",", ""))
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}
