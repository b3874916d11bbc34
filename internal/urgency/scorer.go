// Package urgency computes a 0-10 urgency score from a message's category
// and extracted deadline. Scoring is deterministic for a fixed clock.
package urgency

import (
	"math"
	"time"

	"mailtriage/internal/domain"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// defaultBaseWeight applies to categories missing from the weight table.
const defaultBaseWeight = 2

// MaxScore is the upper clamp for urgency.
const MaxScore = 10

// baseWeights maps categories to their intrinsic time-sensitivity.
var baseWeights = map[string]int{
	"insurance/renewal":    3,
	"banking/fraud-alert":  5,
	"banking/statement":    1,
	"subscription/renewal": 2,
	"utilities/bill":       3,
	"medical/appointment":  3,
	"government/tax":       4,
}

// Score returns base weight plus a deadline-proximity bonus, clamped to 10.
// With no deadline the score is exactly the base weight. The bonus never
// decreases as the deadline gets closer.
func Score(c domain.Classification, deadline *time.Time) int {
	score := baseWeight(c.Category)
	if deadline != nil {
		score += proximityBonus(daysUntil(*deadline, timeNow()))
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func baseWeight(category string) int {
	if w, ok := baseWeights[category]; ok {
		return w
	}
	return defaultBaseWeight
}

// daysUntil is the ceiling of the calendar-day difference from now.
func daysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

func proximityBonus(days int) int {
	switch {
	case days <= 1:
		return 5
	case days <= 3:
		return 3
	case days <= 7:
		return 2
	case days <= 14:
		return 1
	default:
		return 0
	}
}
