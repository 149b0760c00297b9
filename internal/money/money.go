// Package money renders MXN amounts for display.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	Currency = currency.MustParseISO("MXN")
	Locale   = language.MustParse("es-MX")
)

// Format renders d as "$1,234.50 MXN". Negative amounts get a leading minus.
// Digits come from the decimal's string form, never a float.
func Format(d decimal.Decimal) string {
	sign := ""
	if d.Round(2).IsNegative() {
		sign = "-"
	}
	whole, cents, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	return sign + "$" + group(whole) + "." + cents + " " + Currency.String()
}

// group inserts the locale's thousands separators into a string of digits.
func group(whole string) string {
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		return message.NewPrinter(Locale).Sprint(number.Decimal(n))
	}
	var b strings.Builder
	head := len(whole) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(whole[:head])
	for i := head; i < len(whole); i += 3 {
		b.WriteByte(',')
		b.WriteString(whole[i : i+3])
	}
	return b.String()
}

// Masked hides the amount for the dashboard's privacy toggle.
func Masked() string {
	return "$•••••• " + Currency.String()
}
