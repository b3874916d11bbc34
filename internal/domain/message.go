package domain

import "time"

// Message is one forwarded notification fetched from the mail source.
// It is read-only input: the pipeline never mutates a Message.
type Message struct {
	ID       string
	From     string
	Subject  string
	Snippet  string
	Received time.Time
	Link     string   // permalink back to the original message
	Labels   []string // labels already present at fetch time
}

// Amount is a monetary value pulled out of message text.
type Amount struct {
	Value    float64
	Currency string // symbol or ISO code, e.g. "$", "EUR"
}

// ExtractedEntities holds the best-effort extraction results for one message.
// Nil fields mean "not found", which is a valid outcome, not an error.
type ExtractedEntities struct {
	Deadline *time.Time // always strictly in the future at extraction time
	Amount   *Amount
}
