package redact

import (
	"regexp"

	"github.com/NamanLimani/guardrail-ai/internal/models"
)

// urlTail ends a URL path on a character that is not trailing sentence punctuation.
const urlTail = `[^\s<>"']*[^\s<>"'.,;:!?)\]]`

// bareTLDs limits schemeless domain/path matches so that names like Node.js/React stay intact.
const bareTLDs = `(?:com|org|net|io|dev|co|me|app|ai|edu|gov|info|biz|xyz|tech|site|page|us|uk|ca|de|fr|nl|eu|in|au)`

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Explicit http(s) URLs, profile links on common social and professional sites,
	// and bare domain/path forms such as example.org/team/jane or www.example.xyz/jane.
	urlPattern = regexp.MustCompile(`(?i)(?:https?://` + urlTail +
		`|\b(?:www\.)?(?:linkedin|github|gitlab|twitter|x|facebook|fb|instagram|medium|behance|dribbble)\.com/` + urlTail +
		`|\bwww\.[a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,}/` + urlTail +
		`|\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.` + bareTLDs + `/` + urlTail + `)`)

	ssnPattern        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	creditCardPattern = regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)
	phonePattern      = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
)

type pattern struct {
	category string
	re       *regexp.Regexp
}

// patternsFor returns the local matchers in the order they must run.
// Each runs on the output of the previous one.
func patternsFor(phone bool) []pattern {
	p := []pattern{
		{models.CategoryEmail, emailPattern},
		{models.CategoryURL, urlPattern},
		{models.CategorySSN, ssnPattern},
		{models.CategoryCreditCard, creditCardPattern},
	}
	if phone {
		p = append(p, pattern{models.CategoryPhone, phonePattern})
	}
	return p
}

func applyPatterns(text string, patterns []pattern, stats models.PiiStats) string {
	for _, p := range patterns {
		n := len(p.re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		stats[p.category] += n
		text = p.re.ReplaceAllLiteralString(text, "<"+p.category+">")
	}
	return text
}
