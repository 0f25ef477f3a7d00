package pricefeed

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"
)

var numberRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// Extractor turns a raw response body into a price in the source's unit.
// Extractors never panic; a miss is reported as ok == false.
type Extractor interface {
	Extract(body []byte) (price decimal.Decimal, ok bool)
}

// SelectorPattern looks up a CSS selector first and falls back to scanning
// the page text with Pattern.
type SelectorPattern struct {
	Selector string
	Pattern  *regexp.Regexp
}

// Extract implements Extractor
func (e SelectorPattern) Extract(body []byte) (decimal.Decimal, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, false
	}

	if e.Selector != "" {
		if price, ok := parseNumber(doc.Find(e.Selector).First().Text()); ok {
			return price, true
		}
	}

	if e.Pattern == nil {
		return decimal.Zero, false
	}
	text := collapseSpace(doc.Find("body").Text())
	return matchNumber(e.Pattern, text)
}

// JSONPath reads a number at a key path such as items.[0].xauPrice
type JSONPath struct {
	Path []string
}

// ParseJSONPath splits a dotted path into jsonparser keys
func ParseJSONPath(path string) JSONPath {
	return JSONPath{Path: strings.Split(path, ".")}
}

// Extract implements Extractor
func (e JSONPath) Extract(body []byte) (decimal.Decimal, bool) {
	value, dataType, _, err := jsonparser.Get(body, e.Path...)
	if err != nil {
		return decimal.Zero, false
	}
	if dataType != jsonparser.Number && dataType != jsonparser.String {
		return decimal.Zero, false
	}
	return parseNumber(string(value))
}

// CandidateRange scans every currency-prefixed number in the raw body and picks
// the first one that looks like a per-gram price. A number in the ten-gram
// range is accepted and divided by ten.
type CandidateRange struct {
	Pattern  *regexp.Regexp
	Min, Max decimal.Decimal
}

// Extract implements Extractor
func (e CandidateRange) Extract(body []byte) (decimal.Decimal, bool) {
	if e.Pattern == nil {
		return decimal.Zero, false
	}

	ten := decimal.NewFromInt(10)
	for _, m := range e.Pattern.FindAllSubmatch(body, -1) {
		raw := m[0]
		if len(m) > 1 {
			raw = m[1]
		}
		price, ok := parseNumber(string(raw))
		if !ok {
			continue
		}
		if inRange(price, e.Min, e.Max) {
			return price, true
		}
		if inRange(price, e.Min.Mul(ten), e.Max.Mul(ten)) {
			return price.Div(ten), true
		}
	}
	return decimal.Zero, false
}

func inRange(v, lo, hi decimal.Decimal) bool {
	return v.GreaterThan(lo) && v.LessThan(hi)
}

func matchNumber(re *regexp.Regexp, text string) (decimal.Decimal, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	if len(m) > 1 {
		return parseNumber(m[1])
	}
	return parseNumber(m[0])
}

// parseNumber extracts the first positive number from s, ignoring thousands separators
func parseNumber(s string) (decimal.Decimal, bool) {
	raw := numberRe.FindString(s)
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
