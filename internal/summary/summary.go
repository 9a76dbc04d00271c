package summary

import (
	"context"
	"strings"
	"unicode/utf8"
)

const (
	// NoActivity is used as the description when there is nothing to narrate.
	NoActivity = "No activity recorded"

	DefaultMaxChars = 600
	ellipsis        = "\n…"
)

// Adapter turns an activity breakdown into a short narrative.
type Adapter interface {
	Summarize(ctx context.Context, detail string) (string, error)
}

// Observer receives partial tokens while a streamed response is assembled.
type Observer interface {
	OnToken(token string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(token string)

func (f ObserverFunc) OnToken(token string) { f(token) }

// Narrate produces the calendar description for detail. An empty detail
// bypasses the adapter entirely.
func Narrate(ctx context.Context, a Adapter, detail string, maxChars int) (string, error) {
	if strings.TrimSpace(detail) == "" {
		return NoActivity, nil
	}
	out, err := a.Summarize(ctx, detail)
	if err != nil {
		return "", err
	}
	return Clean(out, maxChars), nil
}

// Clean unescapes literal "\n" sequences some models emit, trims, and caps
// the result at maxChars runes.
func Clean(s string, maxChars int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, `\n`, "\n"))
	return Truncate(s, maxChars)
}

// Truncate caps s at maxChars runes and appends an ellipsis line when cut.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i] + ellipsis
		}
		n++
	}
	return s
}
