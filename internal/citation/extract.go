package citation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// caseNamePattern matches a party-versus-party name immediately before a
// citation, e.g. "Mabo v Queensland (No 2)".
var caseNamePattern = regexp.MustCompile(`([A-Z][A-Za-z0-9.&'()-]*(?: [A-Za-z0-9.&'()-]+){0,6} v (?:[A-Z][A-Za-z0-9.&'()-]*(?: [A-Za-z0-9.&'()-]+){0,6}))\s*$`)

const caseNameLookback = 120

type Extractor struct {
	rules RuleSet
}

func NewExtractor(rules RuleSet) Extractor {
	if len(rules.Rules) == 0 {
		rules = DefaultRules()
	}
	return Extractor{rules: rules}
}

// Extract finds every citation-like substring in text. Overlapping rule
// matches resolve longest-match-wins; output is ordered by position.
// Extracted citations start unverified and carry the rule table version.
func (e Extractor) Extract(text string) []Citation {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	type match struct {
		span   Span
		ruleID string
		groups map[string]string
	}

	matches := make([]match, 0, 8)
	for _, rule := range e.rules.Rules {
		for _, idx := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			groups := make(map[string]string, 4)
			for i, name := range rule.Pattern.SubexpNames() {
				if name == "" || idx[2*i] < 0 {
					continue
				}
				groups[name] = text[idx[2*i]:idx[2*i+1]]
			}
			matches = append(matches, match{
				span:   Span{Start: idx[0], End: idx[1]},
				ruleID: rule.ID,
				groups: groups,
			})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].span.Start == matches[j].span.Start {
			return matches[i].span.Len() > matches[j].span.Len()
		}
		return matches[i].span.Start < matches[j].span.Start
	})

	citations := make([]Citation, 0, len(matches))
	lastEnd := -1
	for _, m := range matches {
		if m.span.Start < lastEnd {
			continue
		}
		components := componentsFromGroups(m.groups)
		components.CaseName = leadingCaseName(text, m.span.Start)
		citations = append(citations, Citation{
			Raw:         text[m.span.Start:m.span.End],
			Span:        m.span,
			Normalized:  Normalize(components),
			Components:  components,
			RuleID:      m.ruleID,
			RuleVersion: e.rules.Version,
			Status:      StatusUnverified,
		})
		lastEnd = m.span.End
	}
	return citations
}

// Spans returns just the byte ranges of extracted citations, for callers
// that only need boundary protection.
func (e Extractor) Spans(text string) []Span {
	citations := e.Extract(text)
	spans := make([]Span, 0, len(citations))
	for _, c := range citations {
		spans = append(spans, c.Span)
	}
	return spans
}

func componentsFromGroups(groups map[string]string) Components {
	return Components{
		Year:     atoiOrZero(groups["year"]),
		Court:    strings.ToUpper(strings.TrimSpace(groups["court"])),
		Volume:   atoiOrZero(groups["volume"]),
		Reporter: strings.Join(strings.Fields(groups["reporter"]), " "),
		Page:     atoiOrZero(groups["page"]),
		Number:   atoiOrZero(groups["number"]),
		Pinpoint: strings.TrimSpace(groups["pinpoint"]),
	}
}

func leadingCaseName(text string, start int) string {
	from := start - caseNameLookback
	if from < 0 {
		from = 0
	}
	match := caseNamePattern.FindStringSubmatch(text[from:start])
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func atoiOrZero(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}
