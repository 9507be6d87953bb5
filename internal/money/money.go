// Package money converts between decimal major-unit amounts used on the API
// and integer minor units used by the processor and the store.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "usd"

var ErrNonPositive = errors.New("amount must be greater than zero")

// processor zero-decimal currencies
var zeroDecimal = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {},
	"mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {},
	"xof": {}, "xpf": {},
}

func NormalizeCurrency(currency string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func exponent(currency string) int32 {
	if _, ok := zeroDecimal[NormalizeCurrency(currency)]; ok {
		return 0
	}
	return 2
}

// ToMinor rounds half away from zero: 19.99 usd -> 1999, 10.005 usd -> 1001.
func ToMinor(amount decimal.Decimal, currency string) (int64, error) {
	minor := amount.Shift(exponent(currency)).Round(0)
	if !minor.IsPositive() {
		return 0, ErrNonPositive
	}
	return minor.IntPart(), nil
}

func FromMinor(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -exponent(currency))
}
