package alert

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClampRunes_MultiByteBoundary(t *testing.T) {
	// Alert text leads with emoji banners, so the clamp boundary can land
	// inside a multi-byte rune.
	s := strings.Repeat("🚨", telegramMaxMsgLen+5)
	got := clampRunes(s, telegramMaxMsgLen)
	if !utf8.ValidString(got) {
		t.Fatal("clamp produced invalid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != telegramMaxMsgLen {
		t.Errorf("expected %d runes, got %d", telegramMaxMsgLen, n)
	}
}

func TestClampRunes_ShortTextUnchanged(t *testing.T) {
	if got := clampRunes("⚠️ renewal due", telegramMaxMsgLen); got != "⚠️ renewal due" {
		t.Errorf("unexpected %q", got)
	}
}
