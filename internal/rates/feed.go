// Package rates owns exchange-rate state: fetching snapshots from the
// forex feed, storing the latest rate per currency, and converting
// amounts between currencies through the base currency.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/core"
)

// Feed fetches rate snapshots from the external forex API. The feed
// returns every rate quoted against its declared base currency.
type Feed struct {
	client *http.Client
	url    string
	apiKey string
}

func NewFeed(url, apiKey string) *Feed {
	return &Feed{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
		apiKey: apiKey,
	}
}

type feedResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Fetch pulls the current snapshot. Network and decode failures
// propagate to the caller; no partial result is ever returned.
func (f *Feed) Fetch(ctx context.Context) (core.RateSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return core.RateSet{}, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		q := req.URL.Query()
		q.Set("access_key", f.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return core.RateSet{}, fmt.Errorf("fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.RateSet{}, fmt.Errorf("fetch exchange rates: unexpected status %s", resp.Status)
	}

	var payload feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return core.RateSet{}, fmt.Errorf("decode exchange rates: %w", err)
	}

	return core.RateSet{Base: payload.Base, Rates: payload.Rates}, nil
}
