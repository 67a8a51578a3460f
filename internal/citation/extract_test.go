package citation

import (
	"reflect"
	"testing"
)

func TestExtractMediumNeutralCitation(t *testing.T) {
	extractor := NewExtractor(DefaultRules())

	citations := extractor.Extract("The principle was settled in [2020] HCA 41 and has not been revisited.")
	if len(citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(citations))
	}

	got := citations[0]
	if got.Raw != "[2020] HCA 41" {
		t.Fatalf("unexpected raw: %q", got.Raw)
	}
	if got.Normalized != "[2020] HCA 41" {
		t.Fatalf("unexpected normalized form: %q", got.Normalized)
	}
	if got.Components.Year != 2020 || got.Components.Court != "HCA" || got.Components.Number != 41 {
		t.Fatalf("unexpected components: %+v", got.Components)
	}
	if got.Status != StatusUnverified {
		t.Fatalf("expected unverified status, got %s", got.Status)
	}
	if got.RuleVersion != DefaultRules().Version {
		t.Fatalf("expected rule version %d, got %d", DefaultRules().Version, got.RuleVersion)
	}
}

func TestExtractReportSeriesWithCaseNameAndPinpoint(t *testing.T) {
	extractor := NewExtractor(DefaultRules())

	citations := extractor.Extract("Mabo v Queensland (No 2) (1992) 175 CLR 1 at 42 recognised native title.")
	if len(citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(citations))
	}

	got := citations[0]
	if got.Normalized != "(1992) 175 CLR 1" {
		t.Fatalf("unexpected normalized form: %q", got.Normalized)
	}
	if got.Components.CaseName != "Mabo v Queensland (No 2)" {
		t.Fatalf("unexpected case name: %q", got.Components.CaseName)
	}
	if got.Components.Pinpoint != "42" {
		t.Fatalf("unexpected pinpoint: %q", got.Components.Pinpoint)
	}
}

func TestExtractOrdersByPositionAndPrefersLongestMatch(t *testing.T) {
	extractor := NewExtractor(DefaultRules())
	text := "Compare [2019] FCAFC 12 [7] with (2005) 224 CLR 322 and then [2023] HCA 99."

	citations := extractor.Extract(text)
	if len(citations) != 3 {
		t.Fatalf("expected 3 citations, got %d", len(citations))
	}

	// Pinpoint included via longest-match-wins.
	if citations[0].Raw != "[2019] FCAFC 12 [7]" {
		t.Fatalf("expected pinpoint kept in first match, got %q", citations[0].Raw)
	}
	for i := 1; i < len(citations); i++ {
		if citations[i].Span.Start < citations[i-1].Span.End {
			t.Fatalf("citations overlap or are out of order: %+v", citations)
		}
	}
	if citations[2].Normalized != "[2023] HCA 99" {
		t.Fatalf("unexpected final citation: %q", citations[2].Normalized)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	extractor := NewExtractor(DefaultRules())
	text := "See [2020] HCA 41; see also [2020] HCA 41 and (1992) 175 CLR 1."

	first := extractor.Extract(text)
	second := extractor.Extract(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}

	if len(first) != 3 {
		t.Fatalf("expected 3 citations, got %d", len(first))
	}
	if first[0].Normalized != first[1].Normalized {
		t.Fatalf("repeated citation should normalize identically: %q vs %q", first[0].Normalized, first[1].Normalized)
	}
}

func TestExtractReturnsNothingForPlainText(t *testing.T) {
	extractor := NewExtractor(DefaultRules())
	if got := extractor.Extract("No authorities are referenced in this paragraph."); len(got) != 0 {
		t.Fatalf("expected no citations, got %+v", got)
	}
}
