// Package cli provides output helpers for the GuardRail command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a -format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

const rule = "─────────────────────────────────────────────────────────"

// Redaction is the result of redacting one local file.
type Redaction struct {
	Filename string          `json:"filename"`
	Text     string          `json:"text"`
	Stats    models.PiiStats `json:"pii_stats"`
	Score    int             `json:"risk_score"`
	Level    string          `json:"risk_level"`
	// Degraded explains why the entity pass was skipped, if it was.
	Degraded string `json:"entity_pass_degraded,omitempty"`
}

// WriteMatches writes search matches to w in the given format.
func WriteMatches(w io.Writer, query string, matches []models.ScoredMatch, format OutputFormat) error {
	if format == OutputJSON {
		if matches == nil {
			matches = []models.ScoredMatch{}
		}
		return writeJSON(w, matches)
	}
	fmt.Fprintf(w, "\nFound %d matches for %q\n\n", len(matches), query)
	for i, m := range matches {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%d. %s | Score: %.4f\n", i+1, m.Filename, m.Score)
		fmt.Fprintf(w, "ID: %s\n", m.DocumentID)
		if m.Preview != "" {
			fmt.Fprintf(w, "\n%s\n", m.Preview)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteRedaction writes a redaction report to w in the given format.
func WriteRedaction(w io.Writer, r Redaction, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "File: %s\n", r.Filename)
	fmt.Fprintf(w, "Risk: %d (%s)\n", r.Score, r.Level)
	if r.Degraded != "" {
		fmt.Fprintf(w, "Entity pass skipped: %s\n", r.Degraded)
	}
	fmt.Fprintln(w, "PII found:")
	for _, category := range sortedKeys(r.Stats) {
		fmt.Fprintf(w, "  %-12s %d\n", category, r.Stats[category])
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, r.Text)
	return nil
}

// WriteDocument writes a processed document summary to w in the given format.
func WriteDocument(w io.Writer, doc *models.Document, format OutputFormat) error {
	if format == OutputJSON {
		view := *doc
		view.Vector = nil
		return writeJSON(w, view)
	}
	fmt.Fprintf(w, "Document: %s\n", doc.ID)
	fmt.Fprintf(w, "File:     %s (%d bytes)\n", doc.Filename, doc.FileSize)
	fmt.Fprintf(w, "Status:   %s\n", doc.Status)
	if doc.FailureReason != "" {
		fmt.Fprintf(w, "Reason:   %s\n", doc.FailureReason)
	}
	if doc.Status == models.StatusCompleted {
		fmt.Fprintf(w, "Risk:     %d (%s)\n", doc.RiskScore, doc.RiskLevel)
		fmt.Fprintf(w, "Preview:  %s\n", utils.Truncate(doc.TextContent, 200))
	}
	return nil
}

func sortedKeys(stats models.PiiStats) []string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
