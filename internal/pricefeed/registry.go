package pricefeed

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Source formats
const (
	FormatHTML = "html"
	FormatJSON = "json"
	FormatText = "text"
)

// SourceConfig declares one source of the fallback chain
type SourceConfig struct {
	Name     string            `yaml:"name" validate:"required"`
	URL      string            `yaml:"url" validate:"required,url"`
	Format   string            `yaml:"format" validate:"required,oneof=html json text"`
	Currency string            `yaml:"currency" validate:"required,len=3"`
	Unit     Unit              `yaml:"unit" validate:"required,oneof=ounce gram 10gram"`
	Selector string            `yaml:"selector"`
	Pattern  string            `yaml:"pattern" validate:"required_if=Format text"`
	JSONPath string            `yaml:"json_path" validate:"required_if=Format json"`
	Min      float64           `yaml:"min"`
	Max      float64           `yaml:"max" validate:"required_if=Format text,gtefield=Min"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`
}

// DefaultSources is the built-in chain: spot USD sources first, then local
// INR market sources that already include dealer premiums.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:     "goldprice-html",
			URL:      "https://goldprice.org/spot-gold.html",
			Format:   FormatHTML,
			Currency: "USD",
			Unit:     UnitOunce,
			Selector: "span#formatted_price",
			Pattern:  `(?i)Gold Price.*?(\d{1,3}(?:,\d{3})*\.\d{2})`,
			Timeout:  5 * time.Second,
			Headers: map[string]string{
				"Accept":  "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Referer": "https://goldprice.org/",
			},
		},
		{
			Name:     "bullion-rates",
			URL:      "https://www.bullion-rates.com/gold/USD/spot-price.htm",
			Format:   FormatHTML,
			Currency: "USD",
			Unit:     UnitOunce,
			Pattern:  `(?i)Gold.*?(\d{1,3}(?:,\d{3})*\.\d{2})`,
			Timeout:  5 * time.Second,
		},
		{
			Name:     "goldprice-json",
			URL:      "https://data-asg.goldprice.org/dbXRates/USD",
			Format:   FormatJSON,
			Currency: "USD",
			Unit:     UnitOunce,
			JSONPath: "items.[0].xauPrice",
			Timeout:  5 * time.Second,
		},
		{
			Name:     "livepriceofgold",
			URL:      "https://www.livepriceofgold.com/usa-gold-price.html",
			Format:   FormatHTML,
			Currency: "USD",
			Unit:     UnitOunce,
			Pattern:  `(?i)Gold Price Per Ounce.*?(\d{1,3}(?:,\d{3})*\.\d{2})`,
			Timeout:  5 * time.Second,
		},
		{
			Name:     "google-inr",
			URL:      "https://www.google.com/search?q=gold+price+today+in+india+per+gram",
			Format:   FormatText,
			Currency: "INR",
			Unit:     UnitGram,
			Pattern:  `(?i)(?:₹|Rs\.?|INR)\s?(\d{1,3}(?:,\d{2,3})*(?:\.\d+)?)`,
			Min:      4000,
			Max:      10000,
			Timeout:  6 * time.Second,
		},
		{
			Name:     "goodreturns-inr",
			URL:      "https://www.goodreturns.in/gold-rates/india.html",
			Format:   FormatHTML,
			Currency: "INR",
			Unit:     UnitGram,
			Pattern:  `(?i)24 Carat Gold.*?1 Gram.*?₹\s*([\d,]+)`,
			Timeout:  6 * time.Second,
		},
	}
}

// LoadSources reads a YAML source list from path
func LoadSources(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid sources file: %w", err)
	}
	return f.Sources, nil
}

// BuildSources turns configs into Sources sharing one HTTP client
func BuildSources(cfgs []SourceConfig, client *http.Client) ([]Source, error) {
	v := validator.New()
	sources := make([]Source, 0, len(cfgs))
	for _, cfg := range cfgs {
		if err := v.Struct(cfg); err != nil {
			return nil, fmt.Errorf("invalid source %q: %w", cfg.Name, err)
		}

		extractor, err := cfg.extractor()
		if err != nil {
			return nil, fmt.Errorf("invalid source %q: %w", cfg.Name, err)
		}

		src := NewHTTPSource(cfg.Name, cfg.URL, cfg.Currency, cfg.Unit, extractor, client).
			WithTimeout(cfg.Timeout).
			WithHeaders(cfg.Headers)
		sources = append(sources, src)
	}
	return sources, nil
}

func (c SourceConfig) extractor() (Extractor, error) {
	var pattern *regexp.Regexp
	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern: %w", err)
		}
		pattern = re
	}

	switch c.Format {
	case FormatHTML:
		if c.Selector == "" && pattern == nil {
			return nil, fmt.Errorf("html source needs a selector or a pattern")
		}
		return SelectorPattern{Selector: c.Selector, Pattern: pattern}, nil
	case FormatJSON:
		return ParseJSONPath(c.JSONPath), nil
	case FormatText:
		return CandidateRange{
			Pattern: pattern,
			Min:     decimal.NewFromFloat(c.Min),
			Max:     decimal.NewFromFloat(c.Max),
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", c.Format)
	}
}
