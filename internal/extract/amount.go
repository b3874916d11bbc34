package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"mailtriage/internal/domain"
)

// DefaultCurrency is used when a numeric match carries no currency marker.
const DefaultCurrency = "$"

const currencySymbols = `[$€£¥₹]`

// numberPattern matches a comma-grouped or plain number. The comma form
// requires at least one separator group: regexp alternation is
// leftmost-first, and an optional group would stop a plain number after
// its first three digits.
const numberPattern = `(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?`

var (
	reSymbolPrefixed = regexp.MustCompile(`(` + currencySymbols + `)\s?(` + numberPattern + `)`)
	reCodeSuffixed   = regexp.MustCompile(`(?i)\b(` + numberPattern + `)\s?(usd|eur|gbp|inr|jpy|aud|cad|` + currencySymbols + `)`)
	reAmountOf       = regexp.MustCompile(`(?i)\bamount\s+of\s+(` + currencySymbols + `)?\s?(` + numberPattern + `)`)
)

// amountMatcher tries one amount syntax; nil means no match for this syntax.
type amountMatcher func(text string) *domain.Amount

// amountMatchers is tried in order, first success wins.
var amountMatchers = []amountMatcher{
	matchSymbolPrefixed,
	matchCodeSuffixed,
	matchAmountOfPhrase,
}

// ExtractAmount returns the first monetary amount found in text, or nil.
// Thousands separators are stripped before the numeric parse; a value that
// fails to parse falls through to the next matcher.
func ExtractAmount(text string) *domain.Amount {
	for _, m := range amountMatchers {
		if a := m(text); a != nil {
			return a
		}
	}
	return nil
}

// parseValue strips thousands separators and rejects non-finite values.
func parseValue(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func matchSymbolPrefixed(text string) *domain.Amount {
	g := reSymbolPrefixed.FindStringSubmatch(text)
	if g == nil {
		return nil
	}
	v, ok := parseValue(g[2])
	if !ok {
		return nil
	}
	return &domain.Amount{Value: v, Currency: g[1]}
}

func matchCodeSuffixed(text string) *domain.Amount {
	g := reCodeSuffixed.FindStringSubmatch(text)
	if g == nil {
		return nil
	}
	v, ok := parseValue(g[1])
	if !ok {
		return nil
	}
	cur := g[2]
	if len(cur) == 3 {
		cur = strings.ToUpper(cur)
	}
	return &domain.Amount{Value: v, Currency: cur}
}

func matchAmountOfPhrase(text string) *domain.Amount {
	g := reAmountOf.FindStringSubmatch(text)
	if g == nil {
		return nil
	}
	v, ok := parseValue(g[2])
	if !ok {
		return nil
	}
	cur := g[1]
	if cur == "" {
		cur = DefaultCurrency
	}
	return &domain.Amount{Value: v, Currency: cur}
}
