// Package risk computes a privacy-risk score from PII counts.
package risk

import (
	"math"

	"github.com/NamanLimani/guardrail-ai/internal/models"
)

// Weights per category. Critical identifiers dominate; names and places only add context.
var Weights = map[string]float64{
	models.CategorySSN:          100,
	models.CategoryCreditCard:   100,
	models.CategoryEmail:        10,
	models.CategoryPhone:        10,
	models.CategoryPerson:       1,
	models.CategoryOrganization: 0.5,
	models.CategoryLocation:     0.5,
}

// Risk levels shown next to a document.
const (
	LevelSafe   = "safe"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Level thresholds.
const (
	MediumThreshold = 20
	HighThreshold   = 100
)

// Score returns floor of the weighted sum of stats. Unknown categories and negative counts contribute nothing.
func Score(stats models.PiiStats) int {
	var total float64
	for category, weight := range Weights {
		if n := stats[category]; n > 0 {
			total += weight * float64(n)
		}
	}
	return int(math.Floor(total))
}

// Level maps a score to a coarse band.
func Level(score int) string {
	switch {
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelSafe
	}
}
