package citation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validator performs the pattern-level well-formedness check. It does no
// I/O; the reference year is fixed at construction so results are stable
// for the lifetime of one invocation.
type Validator struct {
	rules       RuleSet
	currentYear int
}

func NewValidator(rules RuleSet) Validator {
	if len(rules.Rules) == 0 {
		rules = DefaultRules()
	}
	return Validator{rules: rules, currentYear: time.Now().UTC().Year()}
}

// Validate returns the citation with Status set to pattern_valid or
// pattern_invalid. Citations already verified externally are never
// downgraded.
func (v Validator) Validate(c Citation) Citation {
	if c.Status == StatusVerifiedExternal {
		return c
	}
	if reason := v.reason(c.Components); reason != "" {
		c.Status = StatusPatternInvalid
		c.InvalidReason = reason
		return c
	}
	c.Status = StatusPatternValid
	c.InvalidReason = ""
	return c
}

func (v Validator) reason(components Components) string {
	if components.Year == 0 {
		return "missing year"
	}
	if components.Year > v.currentYear {
		return fmt.Sprintf("year %d is in the future", components.Year)
	}

	if components.Court != "" {
		court, known := v.rules.Courts[components.Court]
		if !known {
			return fmt.Sprintf("unknown court abbreviation %q", components.Court)
		}
		if court.FirstYear > 0 && components.Year < court.FirstYear {
			return fmt.Sprintf("year %d predates %s reports (first year %d)", components.Year, court.Abbr, court.FirstYear)
		}
		if components.Number <= 0 {
			return "decision number must be positive"
		}
		return v.pinpointReason(components.Pinpoint)
	}

	reporterKey := strings.ToUpper(components.Reporter)
	reporter, known := v.rules.Reporters[reporterKey]
	if !known {
		return fmt.Sprintf("unknown reporter %q", components.Reporter)
	}
	if reporter.FirstYear > 0 && components.Year < reporter.FirstYear {
		return fmt.Sprintf("year %d predates %s (first year %d)", components.Year, reporter.Abbr, reporter.FirstYear)
	}
	if components.Volume <= 0 {
		return "volume must be positive"
	}
	if components.Page <= 0 {
		return "page must be positive"
	}
	return v.pinpointReason(components.Pinpoint)
}

func (v Validator) pinpointReason(pinpoint string) string {
	trimmed := strings.TrimSpace(pinpoint)
	if trimmed == "" {
		return ""
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil || value <= 0 {
		return fmt.Sprintf("malformed pinpoint %q", pinpoint)
	}
	return ""
}
