// ABOUTME: Reply extraction and size policy for engine event streams.
// ABOUTME: The last completed-message event with text is the reply; nothing is ever synthesized.

package engine

import (
	"fmt"
	"unicode/utf8"
)

// truncationNotice is appended when a reply exceeds the platform's limit.
const truncationNotice = "\n\n*[reply truncated]*"

// FinalReply scans the event stream from the end for the most recent
// end-of-turn event carrying a non-empty text payload. Zero such events —
// the engine crashed, emitted nothing, or closed with only tool traffic —
// is a hard failure: the relay never guesses or synthesizes a reply.
func FinalReply(events []Event) (string, error) {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Kind == KindResult && !ev.IsError && ev.Text != "" {
			return ev.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no completed reply in event stream", ErrAgentFailure)
}

// TruncateReply bounds a reply to max bytes, cutting on a rune boundary and
// appending a truncation notice. Applied strictly after extraction.
func TruncateReply(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}

	budget := max - len(truncationNotice)
	notice := truncationNotice
	if budget <= 0 {
		// Limit too small to carry the notice; just cut.
		budget = max
		notice = ""
	}

	cut := budget
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + notice
}
