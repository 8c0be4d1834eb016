// Package contract describes the messages understood by the on-chain price contract
package contract

import (
	"encoding/json"
	"fmt"
)

// CurrencyPrice is one row of the contract's price table.
type CurrencyPrice struct {
	Currency  string `json:"currency"`
	USDPrice  uint64 `json:"usd_price,string"` // Uint128 on-chain, serialized as a decimal string
	UpdatedAt uint64 `json:"updated_at"`       // set by the contract, always 0 when posted
}

// ExecuteMsg is the tagged execute variant carrying a price update.
type ExecuteMsg struct {
	UpdatePrices []CurrencyPrice `json:"update_prices"`
}

// NewUpdatePricesMsg encodes an update_prices execute message.
func NewUpdatePricesMsg(prices []CurrencyPrice) ([]byte, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("update_prices requires at least one price")
	}

	msg := ExecuteMsg{UpdatePrices: prices}

	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode update_prices: %w", err)
	}

	return raw, nil
}
