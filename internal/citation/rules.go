package citation

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type ruleSpec struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Pattern     string `yaml:"pattern"`
}

type authoritySpec struct {
	Abbr      string `yaml:"abbr"`
	Name      string `yaml:"name"`
	FirstYear int    `yaml:"first_year"`
}

type ruleFile struct {
	Version   int             `yaml:"version"`
	Rules     []ruleSpec      `yaml:"rules"`
	Courts    []authoritySpec `yaml:"courts"`
	Reporters []authoritySpec `yaml:"reporters"`
}

// Rule is one compiled jurisdiction pattern. Field extraction relies on the
// named capture groups year/court/number/volume/reporter/page/pinpoint.
type Rule struct {
	ID      string
	Pattern *regexp.Regexp
}

type Authority struct {
	Abbr      string
	Name      string
	FirstYear int
}

// RuleSet is the versioned, ordered pattern table. Rules evolve in
// rules.yaml without touching extraction or orchestration code.
type RuleSet struct {
	Version   int
	Rules     []Rule
	Courts    map[string]Authority
	Reporters map[string]Authority
}

var defaultRuleSet = mustLoadRules(rulesYAML)

// DefaultRules returns the embedded rule table.
func DefaultRules() RuleSet {
	return defaultRuleSet
}

func mustLoadRules(raw []byte) RuleSet {
	set, err := parseRules(raw)
	if err != nil {
		panic(fmt.Sprintf("citation: embedded rule table is invalid: %v", err))
	}
	return set
}

func parseRules(raw []byte) (RuleSet, error) {
	var parsed ruleFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return RuleSet{}, fmt.Errorf("decode rule table: %w", err)
	}
	if parsed.Version < 1 {
		return RuleSet{}, fmt.Errorf("rule table version must be >= 1, got %d", parsed.Version)
	}
	if len(parsed.Rules) == 0 {
		return RuleSet{}, fmt.Errorf("rule table has no rules")
	}

	set := RuleSet{
		Version:   parsed.Version,
		Rules:     make([]Rule, 0, len(parsed.Rules)),
		Courts:    make(map[string]Authority, len(parsed.Courts)),
		Reporters: make(map[string]Authority, len(parsed.Reporters)),
	}
	for _, spec := range parsed.Rules {
		id := strings.TrimSpace(spec.ID)
		if id == "" {
			return RuleSet{}, fmt.Errorf("rule with empty id")
		}
		compiled, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return RuleSet{}, fmt.Errorf("compile rule %s: %w", id, err)
		}
		set.Rules = append(set.Rules, Rule{ID: id, Pattern: compiled})
	}
	for _, spec := range parsed.Courts {
		abbr := strings.ToUpper(strings.TrimSpace(spec.Abbr))
		if abbr == "" {
			continue
		}
		set.Courts[abbr] = Authority{Abbr: abbr, Name: spec.Name, FirstYear: spec.FirstYear}
	}
	for _, spec := range parsed.Reporters {
		abbr := strings.ToUpper(strings.Join(strings.Fields(spec.Abbr), " "))
		if abbr == "" {
			continue
		}
		set.Reporters[abbr] = Authority{Abbr: abbr, Name: spec.Name, FirstYear: spec.FirstYear}
	}
	return set, nil
}
