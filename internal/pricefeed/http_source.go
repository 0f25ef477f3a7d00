package pricefeed

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/trogers1052/gold-price-alerts/internal/models"
)

const maxBodyBytes = 4 << 20

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// HTTPSource fetches a page or API document and runs an Extractor over it
type HTTPSource struct {
	name      string
	url       string
	currency  string
	unit      Unit
	timeout   time.Duration
	headers   map[string]string
	extractor Extractor
	client    *http.Client
}

// NewHTTPSource creates a source. A nil client uses http.DefaultClient;
// the per-call deadline comes from the context.
func NewHTTPSource(name, url, currency string, unit Unit, extractor Extractor, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{
		name:      name,
		url:       url,
		currency:  currency,
		unit:      unit,
		timeout:   DefaultTimeout,
		extractor: extractor,
		client:    client,
	}
}

// WithTimeout sets the per-call timeout
func (s *HTTPSource) WithTimeout(d time.Duration) *HTTPSource {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithHeaders sets extra request headers
func (s *HTTPSource) WithHeaders(h map[string]string) *HTTPSource {
	s.headers = h
	return s
}

// Name implements Source
func (s *HTTPSource) Name() string { return s.name }

// Timeout bounds a single Fetch
func (s *HTTPSource) Timeout() time.Duration { return s.timeout }

// Fetch implements Source
func (s *HTTPSource) Fetch(ctx context.Context) (models.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Quote{}, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, s.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to read body: %w", err)
	}

	price, ok := s.extractor.Extract(body)
	if !ok {
		return models.Quote{}, ErrNoPrice
	}

	return models.Quote{
		PerGram:  s.unit.PerGram(price),
		Currency: s.currency,
		Source:   s.name,
	}, nil
}
