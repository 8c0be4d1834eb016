package pricefeed

import "context"

// RateProvider fetches the current USD rates of the supported currencies.
type RateProvider interface {
	// FetchRates performs a single request against the feed. Callers fall
	// back to an empty RateSnapshot when it fails.
	FetchRates(ctx context.Context) (RateSnapshot, error)
}
