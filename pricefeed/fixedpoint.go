package pricefeed

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/sljivkov/fiatoracle/contract"
)

// PriceDecimals is the number of implied decimal places of on-chain prices.
// Currencies with other conventional precisions are not special-cased.
const PriceDecimals = 2

// ErrInvalidRate is returned for rates that cannot be posted on-chain.
var ErrInvalidRate = errors.New("invalid rate")

// ToFixedPoint scales rate by 10^PriceDecimals and rounds half away from zero.
// The rate is converted through its shortest decimal form, so 1.295 becomes 130.
func ToFixedPoint(rate float64) (uint64, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}

	scaled := decimal.NewFromFloat(rate).Shift(PriceDecimals).Round(0).BigInt()
	if !scaled.IsUint64() {
		return 0, fmt.Errorf("%w: %v overflows uint64", ErrInvalidRate, rate)
	}

	return scaled.Uint64(), nil
}

// ToEntries converts validated prices into contract rows, keeping their order.
// A rate that rounds to zero is rejected rather than posted.
func ToEntries(prices []ValidatedPrice) ([]contract.CurrencyPrice, error) {
	entries := make([]contract.CurrencyPrice, 0, len(prices))

	for _, p := range prices {
		usd, err := ToFixedPoint(p.Rate)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", p.Currency, err)
		}

		if usd == 0 {
			return nil, fmt.Errorf("convert %s: %w: %v rounds to zero", p.Currency, ErrInvalidRate, p.Rate)
		}

		entries = append(entries, contract.CurrencyPrice{
			Currency:  p.Currency.String(),
			USDPrice:  usd,
			UpdatedAt: 0,
		})
	}

	return entries, nil
}
