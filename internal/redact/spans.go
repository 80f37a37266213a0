package redact

import (
	"sort"
	"strings"

	"github.com/NamanLimani/guardrail-ai/internal/models"
)

// Span is a half-open rune range [Start, End) tagged with a category label.
type Span struct {
	Start int
	End   int
	Label string
}

// NormalizeLabel maps a detector label onto a redactable category.
// Tagging-scheme prefixes (B-, I-) are stripped. ok is false for labels that are not redacted.
func NormalizeLabel(raw string) (label string, ok bool) {
	l := strings.ToUpper(strings.TrimSpace(raw))
	l = strings.TrimPrefix(l, "B-")
	l = strings.TrimPrefix(l, "I-")
	switch l {
	case "PER", "PERSON":
		return models.CategoryPerson, true
	case "ORG", "ORGANIZATION":
		return models.CategoryOrganization, true
	case "LOC", "LOCATION":
		return models.CategoryLocation, true
	}
	return "", false
}

// ResolveSpans clamps spans to [0, length), drops empty ones and resolves overlaps.
//
// Spans are ordered by start, longer first on equal starts, then by label. A span is
// accepted only if it begins at or after the end of the last accepted span, so the
// leftmost-longest span wins and the result never overlaps. The returned spans are
// in ascending start order.
func ResolveSpans(spans []Span, length int) []Span {
	cleaned := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > length {
			s.End = length
		}
		if s.Start >= s.End {
			continue
		}
		cleaned = append(cleaned, s)
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		a, b := cleaned[i], cleaned[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End > b.End
		}
		return a.Label < b.Label
	})

	accepted := make([]Span, 0, len(cleaned))
	lastEnd := 0
	for _, s := range cleaned {
		if s.Start < lastEnd {
			continue
		}
		accepted = append(accepted, s)
		lastEnd = s.End
	}
	return accepted
}

// ApplySpans replaces each span with "<LABEL>". Spans are applied from the highest
// start offset down so the offsets of spans not yet applied stay valid.
// Spans must not overlap; out-of-range spans are skipped.
func ApplySpans(text []rune, spans []Span) string {
	ordered := append([]Span(nil), spans...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	out := append([]rune(nil), text...)
	for _, s := range ordered {
		if s.Start < 0 || s.End > len(out) || s.Start >= s.End {
			continue
		}
		placeholder := []rune("<" + s.Label + ">")
		next := make([]rune, 0, len(out)-(s.End-s.Start)+len(placeholder))
		next = append(next, out[:s.Start]...)
		next = append(next, placeholder...)
		next = append(next, out[s.End:]...)
		out = next
	}
	return string(out)
}
