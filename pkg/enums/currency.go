package enums

import (
	"fmt"
	"strings"
)

// Currency is a lower-cased ISO 4217 code accepted by the payment processor.
type Currency string

const (
	CurrencyBRL Currency = "brl"
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
	CurrencyGBP Currency = "gbp"
	CurrencyARS Currency = "ars"
	CurrencyCLP Currency = "clp"
	CurrencyCOP Currency = "cop"
	CurrencyMXN Currency = "mxn"
	CurrencyCAD Currency = "cad"
	CurrencyAUD Currency = "aud"
)

var validCurrencies = []Currency{
	CurrencyBRL,
	CurrencyUSD,
	CurrencyEUR,
	CurrencyGBP,
	CurrencyARS,
	CurrencyCLP,
	CurrencyCOP,
	CurrencyMXN,
	CurrencyCAD,
	CurrencyAUD,
}

// zeroDecimalCurrencies are charged in whole units by the processor.
var zeroDecimalCurrencies = map[Currency]struct{}{
	CurrencyCLP: {},
}

// Currencies returns the allow-list in declaration order.
func Currencies() []Currency {
	out := make([]Currency, len(validCurrencies))
	copy(out, validCurrencies)
	return out
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is on the allow-list.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// MinorUnitExponent is the number of decimal places the processor expects
// in amounts for c.
func (c Currency) MinorUnitExponent() int32 {
	if _, ok := zeroDecimalCurrencies[c]; ok {
		return 0
	}
	return 2
}

// ParseCurrency trims and lower-cases value before matching it against the allow-list.
func ParseCurrency(value string) (Currency, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCurrencies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
