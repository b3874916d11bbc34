package extract

import (
	"testing"
	"time"
)

// fixedNow pins the clock for the duration of one test.
func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = orig })
}

var testNow = time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtractDeadline_DayMonthNameYear(t *testing.T) {
	fixedNow(t, testNow)
	got := ExtractDeadline("Your policy renewal due 15 March 2026")
	if got == nil {
		t.Fatal("expected a deadline, got nil")
	}
	if want := date(2026, time.March, 15); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractDeadline_OrdinalDay(t *testing.T) {
	fixedNow(t, testNow)
	got := ExtractDeadline("payment expected on the 3rd of April 2026")
	if got == nil {
		t.Fatal("expected a deadline, got nil")
	}
	if want := date(2026, time.April, 3); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractDeadline_MonthNameDayYear(t *testing.T) {
	fixedNow(t, testNow)
	got := ExtractDeadline("renews March 15, 2026")
	if got == nil {
		t.Fatal("expected a deadline, got nil")
	}
	if want := date(2026, time.March, 15); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractDeadline_NumericDMY(t *testing.T) {
	fixedNow(t, testNow)
	got := ExtractDeadline("pay before 15/03/2026 to avoid fees")
	if got == nil {
		t.Fatal("expected a deadline, got nil")
	}
	if want := date(2026, time.March, 15); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractDeadline_ISO(t *testing.T) {
	fixedNow(t, testNow)
	got := ExtractDeadline("Your annual subscription renews on 2026-06-01")
	if got == nil {
		t.Fatal("expected a deadline, got nil")
	}
	if want := date(2026, time.June, 1); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractDeadline_DuePhraseNoYear(t *testing.T) {
	fixedNow(t, testNow)
	got := ExtractDeadline("invoice due 20 February")
	if got == nil {
		t.Fatal("expected a deadline, got nil")
	}
	if want := date(2026, time.February, 20); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractDeadline_DuePhraseRollsToNextYear(t *testing.T) {
	fixedNow(t, testNow)
	// January 5 already passed relative to the pinned now.
	got := ExtractDeadline("due 5 January")
	if got == nil {
		t.Fatal("expected a deadline, got nil")
	}
	if want := date(2027, time.January, 5); !got.Equal(want) {
		t.Fatalf("expected rollover to %v, got %v", want, got)
	}
}

func TestExtractDeadline_PastDateIsAbsent(t *testing.T) {
	fixedNow(t, testNow)
	if got := ExtractDeadline("your statement for 2025-11-01 is ready"); got != nil {
		t.Fatalf("expected nil for past date, got %v", got)
	}
}

func TestExtractDeadline_NoDate(t *testing.T) {
	fixedNow(t, testNow)
	if got := ExtractDeadline("Suspicious activity on your account"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestExtractDeadline_InvalidCalendarDateSkipped(t *testing.T) {
	fixedNow(t, testNow)
	// 31 February never parses; the later valid date should win.
	got := ExtractDeadline("due 31/02/2026, escalated 10/03/2026")
	if got == nil {
		t.Fatal("expected a deadline, got nil")
	}
	if want := date(2026, time.March, 10); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractDeadline_MatcherOrderWins(t *testing.T) {
	fixedNow(t, testNow)
	// Both a month-name date and an ISO date present: the month-name
	// matcher is listed first and decides.
	got := ExtractDeadline("renewal 20 April 2026 (confirmation 2026-05-01)")
	if got == nil {
		t.Fatal("expected a deadline, got nil")
	}
	if want := date(2026, time.April, 20); !got.Equal(want) {
		t.Fatalf("expected first-listed matcher to win with %v, got %v", want, got)
	}
}

func TestExtractAmount_SymbolPrefixed(t *testing.T) {
	got := ExtractAmount("total charge of $1,234.50 this month")
	if got == nil {
		t.Fatal("expected an amount, got nil")
	}
	if got.Value != 1234.50 {
		t.Errorf("thousands separator corrupted parse: got %v", got.Value)
	}
	if got.Currency != "$" {
		t.Errorf("expected $, got %q", got.Currency)
	}
}

func TestExtractAmount_NoSeparator(t *testing.T) {
	got := ExtractAmount("your premium of $1234.50 is due")
	if got == nil {
		t.Fatal("expected an amount, got nil")
	}
	if got.Value != 1234.50 {
		t.Errorf("separator-free amount truncated: got %v", got.Value)
	}
	if got.Currency != "$" {
		t.Errorf("expected $, got %q", got.Currency)
	}
}

func TestExtractAmount_AmountOfPhraseNoSeparator(t *testing.T) {
	got := ExtractAmount("a debit in the amount of $2500 was posted")
	if got == nil {
		t.Fatal("expected an amount, got nil")
	}
	if got.Value != 2500 {
		t.Errorf("separator-free amount truncated: got %v", got.Value)
	}
}

func TestExtractAmount_CodeSuffixedNoSeparator(t *testing.T) {
	got := ExtractAmount("invoice total 1234.50 usd")
	if got == nil {
		t.Fatal("expected an amount, got nil")
	}
	if got.Value != 1234.50 || got.Currency != "USD" {
		t.Errorf("got %v %s", got.Value, got.Currency)
	}
}

func TestExtractAmount_EuroSymbol(t *testing.T) {
	got := ExtractAmount("you will be charged €99")
	if got == nil {
		t.Fatal("expected an amount, got nil")
	}
	if got.Value != 99 || got.Currency != "€" {
		t.Errorf("got %v %s", got.Value, got.Currency)
	}
}

func TestExtractAmount_CodeSuffixed(t *testing.T) {
	got := ExtractAmount("invoice total 2,500.00 usd")
	if got == nil {
		t.Fatal("expected an amount, got nil")
	}
	if got.Value != 2500 {
		t.Errorf("expected 2500, got %v", got.Value)
	}
	if got.Currency != "USD" {
		t.Errorf("expected code upcased to USD, got %q", got.Currency)
	}
}

func TestExtractAmount_AmountOfPhraseDefaultCurrency(t *testing.T) {
	got := ExtractAmount("a debit in the amount of 450.75 was posted")
	if got == nil {
		t.Fatal("expected an amount, got nil")
	}
	if got.Value != 450.75 {
		t.Errorf("expected 450.75, got %v", got.Value)
	}
	if got.Currency != DefaultCurrency {
		t.Errorf("expected default currency, got %q", got.Currency)
	}
}

func TestExtractAmount_NoAmount(t *testing.T) {
	if got := ExtractAmount("please confirm your appointment"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestExtractAmount_PrefixedWinsOverSuffixed(t *testing.T) {
	got := ExtractAmount("pay $20 or 30 EUR")
	if got == nil {
		t.Fatal("expected an amount, got nil")
	}
	if got.Value != 20 || got.Currency != "$" {
		t.Errorf("expected first-listed matcher to win, got %v %s", got.Value, got.Currency)
	}
}
