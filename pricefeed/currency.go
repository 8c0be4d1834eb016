// Package pricefeed provides the rate snapshot, validation and fixed-point conversion
package pricefeed

import (
	"fmt"
	"strings"
)

// Currency is a fiat currency code supported by the price contract.
type Currency string

const (
	ARS Currency = "ARS"
	BRL Currency = "BRL"
	CAD Currency = "CAD"
	CLP Currency = "CLP"
	COP Currency = "COP"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	IDR Currency = "IDR"
	MXN Currency = "MXN"
	MYR Currency = "MYR"
	NGN Currency = "NGN"
	PHP Currency = "PHP"
	SGD Currency = "SGD"
	THB Currency = "THB"
	VES Currency = "VES"
	VND Currency = "VND"
)

// Currencies lists every supported currency in declaration order.
// Validation and message building iterate in this order.
var Currencies = []Currency{
	ARS, BRL, CAD, CLP, COP, EUR, GBP, IDR,
	MXN, MYR, NGN, PHP, SGD, THB, VES, VND,
}

func (c Currency) String() string { return string(c) }

// IsSupported reports whether c belongs to Currencies.
func (c Currency) IsSupported() bool {
	for _, s := range Currencies {
		if s == c {
			return true
		}
	}

	return false
}

// ParseCurrency parses a currency code, case-insensitively.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.IsSupported() {
		return "", fmt.Errorf("unsupported currency %q", code)
	}

	return c, nil
}

// RateSnapshot maps each supported currency to its USD exchange rate.
// The zero value has every rate at 0.0 and is the fallback when the feed fails.
type RateSnapshot struct {
	rates map[Currency]float64
}

// NewRateSnapshot copies rates into a snapshot, dropping unsupported codes.
func NewRateSnapshot(rates map[Currency]float64) RateSnapshot {
	s := RateSnapshot{rates: make(map[Currency]float64, len(Currencies))}

	for c, rate := range rates {
		if c.IsSupported() {
			s.rates[c] = rate
		}
	}

	return s
}

// Rate returns the rate for c, or 0.0 when the feed did not provide one.
func (s RateSnapshot) Rate(c Currency) float64 {
	return s.rates[c]
}

// Rates returns a copy of the snapshot contents.
func (s RateSnapshot) Rates() map[Currency]float64 {
	out := make(map[Currency]float64, len(Currencies))
	for _, c := range Currencies {
		out[c] = s.rates[c]
	}

	return out
}
