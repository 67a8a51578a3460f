// Package soundness runs an independent semantic review of generated text
// on a higher-accuracy model tier, looking for fabricated or unsupported
// content beyond citation formatting.
package soundness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"counsel/core/internal/provider"
)

type Verdict string

const (
	VerdictPassed      Verdict = "passed"
	VerdictFlagged     Verdict = "flagged"
	VerdictUnavailable Verdict = "unavailable"
)

type Review struct {
	Verdict   Verdict
	Rationale string
}

// Responder is satisfied by provider.Client.
type Responder interface {
	Call(ctx context.Context, req provider.CallRequest) (provider.CallResult, error)
}

type Checker struct {
	responder Responder
	model     string
}

func NewChecker(responder Responder, model string) Checker {
	return Checker{responder: responder, model: strings.TrimSpace(model)}
}

// Check is advisory by construction: any transport or parse failure yields
// an unavailable review rather than an error, and the caller's policy
// decides whether a flagged verdict blocks.
func (c Checker) Check(ctx context.Context, text string) Review {
	if c.responder == nil || c.model == "" || strings.TrimSpace(text) == "" {
		return Review{Verdict: VerdictUnavailable, Rationale: "soundness review not configured"}
	}

	result, err := c.responder.Call(ctx, provider.CallRequest{
		Model: c.model,
		Messages: []provider.Message{
			{Role: "system", Content: reviewSystemPrompt},
			{Role: "user", Content: buildReviewPrompt(text)},
		},
	})
	if err != nil {
		return Review{Verdict: VerdictUnavailable, Rationale: fmt.Sprintf("soundness review unavailable: %v", err)}
	}

	return parseReview(result.Text)
}

const reviewSystemPrompt = "You are a meticulous legal reviewer. Respond with strict JSON only.\n" +
	`Schema: {"verdict":"pass|flag","rationale":string}` + "\n" +
	"Flag any factual claim, legal proposition, or authority that appears fabricated, unsupported, or misattributed."

func buildReviewPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Review the following generated legal text for fabricated or unsupported content.\n\n")
	b.WriteString(strings.TrimSpace(text))
	return b.String()
}

func parseReview(raw string) Review {
	jsonRaw := extractJSONBlock(raw)
	if jsonRaw == "" {
		return Review{Verdict: VerdictUnavailable, Rationale: "soundness response did not include json"}
	}

	var parsed struct {
		Verdict   string `json:"verdict"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(jsonRaw), &parsed); err != nil {
		return Review{Verdict: VerdictUnavailable, Rationale: fmt.Sprintf("soundness response was malformed: %v", err)}
	}

	rationale := strings.TrimSpace(parsed.Rationale)
	switch strings.ToLower(strings.TrimSpace(parsed.Verdict)) {
	case "pass":
		return Review{Verdict: VerdictPassed, Rationale: rationale}
	case "flag":
		if rationale == "" {
			rationale = "reviewer flagged the text without a rationale"
		}
		return Review{Verdict: VerdictFlagged, Rationale: rationale}
	default:
		return Review{Verdict: VerdictUnavailable, Rationale: fmt.Sprintf("unknown verdict %q", parsed.Verdict)}
	}
}

func extractJSONBlock(raw string) string {
	value := strings.TrimSpace(raw)
	if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
		return value
	}
	start := strings.Index(value, "{")
	end := strings.LastIndex(value, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(value[start : end+1])
}
