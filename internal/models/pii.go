package models

// PII categories used as stats keys and placeholder labels.
const (
	CategoryPerson       = "PER"
	CategoryOrganization = "ORG"
	CategoryLocation     = "LOC"
	CategoryEmail        = "EMAIL"
	CategoryURL          = "URL"
	CategorySSN          = "SSN"
	CategoryCreditCard   = "CREDIT_CARD"
	CategoryPhone        = "PHONE"
)

// TrackedCategories are always present in stats produced by a redaction, even when zero.
var TrackedCategories = []string{
	CategoryPerson,
	CategoryOrganization,
	CategoryLocation,
	CategoryEmail,
	CategoryURL,
	CategorySSN,
	CategoryCreditCard,
}

// PiiStats maps a PII category to the number of occurrences found.
type PiiStats map[string]int

// NewPiiStats returns stats with every tracked category (plus extra) set to zero.
func NewPiiStats(extra ...string) PiiStats {
	s := make(PiiStats, len(TrackedCategories)+len(extra))
	for _, c := range TrackedCategories {
		s[c] = 0
	}
	for _, c := range extra {
		s[c] = 0
	}
	return s
}

// Total returns the sum of all counts.
func (s PiiStats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}
