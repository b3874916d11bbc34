// Package extract pulls structured facts (deadline dates, monetary amounts)
// out of raw message text. All extraction is rule-based: each fact type has
// an ordered list of independent matchers tried in declaration order, and
// the first matcher that yields a valid result wins. A miss is a nil result,
// never an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateMatcher tries one date syntax against the text. It returns candidate
// dates in the order they appear; invalid or past candidates are skipped by
// the caller.
type dateMatcher func(text string, now time.Time) []time.Time

// dateMatchers is the ordered matcher list. Order is significant: the first
// matcher producing a valid future date decides, ambiguous strings resolve
// to the earliest-listed syntax that parses.
var dateMatchers = []dateMatcher{
	matchDayMonthNameYear,
	matchMonthNameDayYear,
	matchNumericDMY,
	matchISODate,
	matchDuePhrase,
}

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	reDayMonthYear = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?(?:\s+of)?\s+(` + monthAlt + `)\.?,?\s+(\d{4})\b`)
	reMonthDayYear = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	reNumericDMY   = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})\b`)
	reISODate      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDuePhrase    = regexp.MustCompile(`(?i)\b(?:due|by|on|before|until)\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?(?:\s+of)?\s+(` + monthAlt + `)\b`)
)

// ExtractDeadline returns the first future date found in text, trying each
// supported syntax in fixed order. Returns nil when no candidate parses to
// a date strictly after now.
func ExtractDeadline(text string) *time.Time {
	now := timeNow()
	for _, m := range dateMatchers {
		for _, cand := range m(text, now) {
			if cand.After(now) {
				c := cand
				return &c
			}
		}
	}
	return nil
}

// makeDate builds a calendar date and rejects impossible day/month combos.
// time.Date silently normalizes (Feb 30 becomes Mar 2), so round-trip check.
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if day < 1 || day > 31 || year < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func matchDayMonthNameYear(text string, _ time.Time) []time.Time {
	var out []time.Time
	for _, g := range reDayMonthYear.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(g[1])
		month := monthsByName[strings.ToLower(g[2])]
		year, _ := strconv.Atoi(g[3])
		if d, ok := makeDate(year, month, day); ok {
			out = append(out, d)
		}
	}
	return out
}

func matchMonthNameDayYear(text string, _ time.Time) []time.Time {
	var out []time.Time
	for _, g := range reMonthDayYear.FindAllStringSubmatch(text, -1) {
		month := monthsByName[strings.ToLower(g[1])]
		day, _ := strconv.Atoi(g[2])
		year, _ := strconv.Atoi(g[3])
		if d, ok := makeDate(year, month, day); ok {
			out = append(out, d)
		}
	}
	return out
}

func matchNumericDMY(text string, _ time.Time) []time.Time {
	var out []time.Time
	for _, g := range reNumericDMY.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(g[1])
		month, _ := strconv.Atoi(g[2])
		year, _ := strconv.Atoi(g[3])
		if month < 1 || month > 12 {
			continue
		}
		if d, ok := makeDate(year, time.Month(month), day); ok {
			out = append(out, d)
		}
	}
	return out
}

func matchISODate(text string, _ time.Time) []time.Time {
	var out []time.Time
	for _, g := range reISODate.FindAllStringSubmatch(text, -1) {
		year, _ := strconv.Atoi(g[1])
		month, _ := strconv.Atoi(g[2])
		day, _ := strconv.Atoi(g[3])
		if month < 1 || month > 12 {
			continue
		}
		if d, ok := makeDate(year, time.Month(month), day); ok {
			out = append(out, d)
		}
	}
	return out
}

// matchDuePhrase handles "due 15 March" style text with no year: the year
// defaults to the current one, rolling over to the next year when the date
// has already passed.
func matchDuePhrase(text string, now time.Time) []time.Time {
	var out []time.Time
	for _, g := range reDuePhrase.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(g[1])
		month := monthsByName[strings.ToLower(g[2])]
		d, ok := makeDate(now.Year(), month, day)
		if !ok {
			continue
		}
		if !d.After(now) {
			if next, ok2 := makeDate(now.Year()+1, month, day); ok2 {
				d = next
			}
		}
		out = append(out, d)
	}
	return out
}
