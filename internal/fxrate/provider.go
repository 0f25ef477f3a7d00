package fxrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/buger/jsonparser"
)

// Provider performs a live exchange rate lookup
type Provider interface {
	Lookup(ctx context.Context, from, to string) (float64, error)
}

// HTTPProvider queries an exchangerate-api.com style endpoint:
// GET {baseURL}/{from} returning {"rates": {"INR": 83.1, ...}}.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProvider creates a provider for baseURL
func NewHTTPProvider(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: 5 * time.Second,
	}
}

// Lookup implements Provider
func (p *HTTPProvider) Lookup(ctx context.Context, from, to string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+from, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from rate api", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read rate response: %w", err)
	}

	rate, err := jsonparser.GetFloat(body, "rates", to)
	if err != nil {
		return 0, fmt.Errorf("rate %s->%s missing from response: %w", from, to, err)
	}
	return rate, nil
}
