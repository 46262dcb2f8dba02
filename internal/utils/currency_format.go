package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencySymbols holds the currencies rendered with a prefix symbol.
var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"INR": "₹",
}

// FormatWithPrecision formats an amount with the given precision
// Example: amount 12.3456 with precision 2 returns "12.35"
func FormatWithPrecision(amount decimal.Decimal, precision int) string {
	return amount.StringFixed(int32(precision))
}

// FormatMoney renders amount in currency with two decimals, e.g. "€12.50" or "12.50 CHF".
func FormatMoney(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	value := FormatWithPrecision(amount, 2)
	if symbol, ok := currencySymbols[code]; ok {
		if amount.IsNegative() {
			return "-" + symbol + FormatWithPrecision(amount.Abs(), 2)
		}
		return symbol + value
	}
	if code == "" {
		return value
	}
	return value + " " + code
}
