// Package intent extracts reminder requests from free-text messages.
//
// Parsing runs in three steps: trigger detection ("remind me to"), a split of
// the remainder into task and time phrase, and resolution of the phrase into
// an instant with Resolve.
package intent

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Trigger is the literal prefix that marks a reminder-creation request.
const Trigger = "remind me to"

// Match is a successfully parsed reminder request.
type Match struct {
	Task  string
	DueAt time.Time
}

// IsRequest reports whether text starts with the trigger phrase.
func IsRequest(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), Trigger)
}

// Parse extracts the task and due instant from text. It reports false when
// the text does not contain "remind me to <task> <time phrase>" with a
// resolvable phrase.
func Parse(now time.Time, text string) (Match, bool) {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, Trigger)
	if idx < 0 {
		return Match{}, false
	}
	rest := lower[idx+len(Trigger):]
	if r, _ := utf8.DecodeRuneInString(rest); !unicode.IsSpace(r) {
		return Match{}, false
	}

	words := wordSpans(rest)
	// The task needs at least one word, so phrase candidates start at 1.
	for i := 1; i < len(words); i++ {
		if !startsPhrase(rest, words, i) {
			continue
		}
		due, ok := Resolve(now, rest[words[i].start:])
		if !ok {
			// "on" also appears inside tasks ("put on shoes"); keep looking.
			continue
		}
		task := strings.TrimSpace(rest[:words[i].start])
		if task == "" {
			return Match{}, false
		}
		return Match{Task: task, DueAt: due}, true
	}
	return Match{}, false
}

type span struct {
	start, end int
}

func (s span) text(src string) string {
	return normalizeWord(src[s.start:s.end])
}

// startsPhrase reports whether words[i] opens a time phrase.
func startsPhrase(src string, words []span, i int) bool {
	switch words[i].text(src) {
	case "tomorrow", "today":
		return true
	case "next":
		return i+1 < len(words) && words[i+1].text(src) == "week"
	case "at":
		if i+1 >= len(words) {
			return false
		}
		r, _ := utf8.DecodeRuneInString(src[words[i+1].start:])
		return unicode.IsDigit(r)
	case "on":
		return i+1 < len(words)
	}
	return false
}

func wordSpans(s string) []span {
	var (
		spans []span
		start = -1
	)
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, span{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, span{start: start, end: len(s)})
	}
	return spans
}
