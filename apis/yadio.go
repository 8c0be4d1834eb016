// Package apis provides external price feed integrations
package apis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sljivkov/fiatoracle/domain"
	"github.com/sljivkov/fiatoracle/pricefeed"
)

// DefaultYadioURL serves USD-based exchange rates for every fiat currency Yadio tracks.
const DefaultYadioURL = "https://api.yadio.io/exrates/usd"

// maxBodySize bounds the feed response; the full Yadio payload is a few KiB.
const maxBodySize = 1 << 20

// Yadio implements a price feed using the Yadio exchange rate API
type Yadio struct {
	url    string
	client *http.Client
}

// NewYadio creates a new Yadio price feed instance. A nil client gets a
// 10 second timeout.
func NewYadio(url string, client *http.Client) *Yadio {
	if url == "" {
		url = DefaultYadioURL
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Yadio{
		url:    url,
		client: client,
	}
}

// FetchRates fetches the current rates from the Yadio API. The response must be
// shaped as {"USD": {"EUR": 0.92, ...}}; supported currencies missing from it are 0.0.
func (y *Yadio) FetchRates(ctx context.Context) (pricefeed.RateSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.url, nil)
	if err != nil {
		return pricefeed.RateSnapshot{}, &domain.FeedError{Op: "create request", Err: err}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return pricefeed.RateSnapshot{}, &domain.FeedError{Op: "fetch rates", Err: err}
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pricefeed.RateSnapshot{}, &domain.FeedError{
			Op:  "fetch rates",
			Err: fmt.Errorf("API returned non-2xx status: %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return pricefeed.RateSnapshot{}, &domain.FeedError{Op: "read response", Err: err}
	}

	return parseRates(body)
}

func parseRates(body []byte) (pricefeed.RateSnapshot, error) {
	if !gjson.ValidBytes(body) {
		return pricefeed.RateSnapshot{}, &domain.FeedError{Op: "decode response", Err: fmt.Errorf("invalid JSON")}
	}

	usd := gjson.GetBytes(body, "USD")
	if !usd.IsObject() {
		return pricefeed.RateSnapshot{}, &domain.FeedError{
			Op:  "decode response",
			Err: fmt.Errorf("missing USD rates object"),
		}
	}

	rates := make(map[pricefeed.Currency]float64, len(pricefeed.Currencies))

	for _, c := range pricefeed.Currencies {
		v := usd.Get(c.String())
		if !v.Exists() {
			continue
		}

		if v.Type != gjson.Number {
			return pricefeed.RateSnapshot{}, &domain.FeedError{
				Op:  "decode response",
				Err: fmt.Errorf("rate for %s is not a number: %s", c, v.Raw),
			}
		}

		rates[c] = v.Float()
	}

	return pricefeed.NewRateSnapshot(rates), nil
}
