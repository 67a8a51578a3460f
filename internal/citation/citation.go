// Package citation models legal citations and the pattern rules used to
// find and check them in generated text.
package citation

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusUnverified       Status = "unverified"
	StatusPatternValid     Status = "pattern_valid"
	StatusPatternInvalid   Status = "pattern_invalid"
	StatusVerifiedExternal Status = "verified_external"
	StatusNotFound         Status = "not_found"
)

// Span is a half-open byte range [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) Contains(pos int) bool {
	return pos > s.Start && pos < s.End
}

type Components struct {
	CaseName string
	Year     int
	Court    string
	Volume   int
	Reporter string
	Page     int
	Number   int
	Pinpoint string
}

type Citation struct {
	Raw           string
	Span          Span
	Normalized    string
	Components    Components
	RuleID        string
	RuleVersion   int
	Status        Status
	InvalidReason string
	LowConfidence bool
}

// Normalize derives the canonical comparison form from the parsed
// components. It is deterministic: identical raw text always parses to
// identical components, so repeated citations collapse to one form.
func Normalize(c Components) string {
	court := strings.ToUpper(strings.TrimSpace(c.Court))
	reporter := normalizeReporter(c.Reporter)
	switch {
	case court != "" && c.Number > 0:
		return fmt.Sprintf("[%d] %s %d", c.Year, court, c.Number)
	case reporter != "" && c.Volume > 0:
		return fmt.Sprintf("(%d) %d %s %d", c.Year, c.Volume, reporter, c.Page)
	default:
		return ""
	}
}

func normalizeReporter(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(strings.TrimSpace(raw)), " "))
}
