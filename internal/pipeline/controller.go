package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"counsel/core/internal/audit"
	"counsel/core/internal/citation"
	"counsel/core/internal/provider"
	"counsel/core/internal/soundness"
	"counsel/core/internal/verify"
)

// Generator is satisfied by provider.Client.
type Generator interface {
	Call(ctx context.Context, req provider.CallRequest) (provider.CallResult, error)
}

// CitationVerifier is satisfied by verify.Verifier.
type CitationVerifier interface {
	Verify(ctx context.Context, citations []citation.Citation) map[string]verify.Outcome
}

// SoundnessChecker is satisfied by soundness.Checker.
type SoundnessChecker interface {
	Check(ctx context.Context, text string) soundness.Review
}

// Recorder is satisfied by audit.Logger. A nil recorder is tolerated only
// in tests; the record helper treats append failures as warnings because an
// audit write must never alter a pipeline decision.
type Recorder interface {
	Append(rec audit.Record) error
}

type Controller struct {
	gateway   Generator
	verifier  CitationVerifier
	checker   SoundnessChecker
	recorder  Recorder
	extractor citation.Extractor
	validator citation.Validator
}

func NewController(gateway Generator, verifier CitationVerifier, checker SoundnessChecker, recorder Recorder) Controller {
	rules := citation.DefaultRules()
	return Controller{
		gateway:   gateway,
		verifier:  verifier,
		checker:   checker,
		recorder:  recorder,
		extractor: citation.NewExtractor(rules),
		validator: citation.NewValidator(rules),
	}
}

// Run drives one request through Drafting → Validating → Deciding until it
// terminates in exactly one of accepted or failed. Retry attempts are
// strictly sequential and each attempt writes exactly one audit record.
func (c Controller) Run(ctx context.Context, req Request) (Outcome, error) {
	if c.gateway == nil {
		return Outcome{}, errors.New("pipeline gateway is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Outcome{}, errors.New("prompt is required")
	}

	maxRetries := req.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	requestHash := hashRequest(req)
	prompt := req.Prompt
	retryCount := 0
	warnings := make([]string, 0, 4)

	for {
		attempt := retryCount + 1

		// Drafting.
		draft, err := c.gateway.Call(ctx, provider.CallRequest{
			Model:       req.Model,
			Messages:    []provider.Message{{Role: "user", Content: prompt}},
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		if err != nil {
			decision := DecisionFail
			if ctx.Err() != nil {
				decision = DecisionCancelled
			}
			c.record(req, requestHash, attempt, decision, []string{err.Error()})
			return Outcome{RetryCount: retryCount, Warnings: warnings}, err
		}

		// Validating: extraction and pattern validation always run.
		citations := c.extractor.Extract(draft.Text)
		for i := range citations {
			citations[i] = c.validator.Validate(citations[i])
		}

		if req.Policy.citationChecksEnabled(req) && c.verifier != nil {
			citations, warnings = c.applyVerification(ctx, citations, warnings)
		}

		var review soundness.Review
		if req.Policy.contentChecksEnabled(req) && c.checker != nil {
			review = c.checker.Check(ctx, draft.Text)
		}

		if ctx.Err() != nil {
			c.record(req, requestHash, attempt, DecisionCancelled, []string{ctx.Err().Error()})
			return Outcome{RetryCount: retryCount, Warnings: warnings}, ctx.Err()
		}

		// Deciding.
		failing := failingCitations(citations)
		strict := req.Policy.EnforceCitations == EnforceStrict

		if strict && len(failing) > 0 && retryCount < maxRetries {
			c.record(req, requestHash, attempt, DecisionRetry, citationDiagnostics(failing))
			prompt = buildCorrectivePrompt(req.Prompt, draft.Text, failing)
			retryCount++
			continue
		}

		outcome := Outcome{
			FinalText:  draft.Text,
			Citations:  citations,
			Soundness:  review,
			RetryCount: retryCount,
			Unresolved: failing,
		}

		if strict && len(failing) > 0 {
			diagnostics := append(citationDiagnostics(failing), fmt.Sprintf("retries exhausted after %d attempt(s)", attempt))
			c.record(req, requestHash, attempt, DecisionFail, diagnostics)
			outcome.Warnings = warnings
			return outcome, CitationVerificationError{Command: req.CommandName, Attempts: attempt, Unresolved: failing}
		}

		if review.Verdict == soundness.VerdictFlagged && req.Policy.SoundnessBlocking {
			c.record(req, requestHash, attempt, DecisionFail, []string{"soundness flagged: " + review.Rationale})
			outcome.Warnings = warnings
			return outcome, ContentUnsoundError{Command: req.CommandName, Rationale: review.Rationale}
		}

		// Accepting: unresolved citations and advisory soundness flags
		// become warnings, never errors.
		for _, diagnostic := range citationDiagnostics(failing) {
			warnings = appendUniqueWarning(warnings, "unresolved citation: "+diagnostic)
		}
		if review.Verdict == soundness.VerdictFlagged {
			warnings = appendUniqueWarning(warnings, "soundness flagged (advisory): "+review.Rationale)
		}
		if review.Verdict == soundness.VerdictUnavailable && req.Policy.contentChecksEnabled(req) {
			warnings = appendUniqueWarning(warnings, review.Rationale)
		}

		diagnostics := make([]string, 0, len(warnings)+1)
		diagnostics = append(diagnostics, fmt.Sprintf("%d citation(s) checked", len(citations)))
		diagnostics = append(diagnostics, warnings...)
		c.record(req, requestHash, attempt, DecisionAccept, diagnostics)

		outcome.Accepted = true
		outcome.Warnings = warnings
		return outcome, nil
	}
}

// applyVerification joins external lookup outcomes back onto the attempt's
// citations. Status only moves forward: pattern_valid may become
// verified_external or not_found, never the reverse.
func (c Controller) applyVerification(ctx context.Context, citations []citation.Citation, warnings []string) ([]citation.Citation, []string) {
	targets := make([]citation.Citation, 0, len(citations))
	for _, item := range citations {
		if item.Status == citation.StatusPatternValid {
			targets = append(targets, item)
		}
	}
	if len(targets) == 0 {
		return citations, warnings
	}

	outcomes := c.verifier.Verify(ctx, targets)
	for i := range citations {
		if citations[i].Status != citation.StatusPatternValid {
			continue
		}
		outcome, ok := outcomes[citations[i].Normalized]
		if !ok {
			continue
		}
		if outcome.Unavailable {
			warnings = appendUniqueWarning(warnings, "external citation verification was unavailable; citations checked by pattern only")
			continue
		}
		citations[i].Status = outcome.Status
		citations[i].LowConfidence = outcome.LowConfidence
	}
	return citations, warnings
}

func (c Controller) record(req Request, requestHash string, attempt int, decision Decision, diagnostics []string) {
	if c.recorder == nil {
		return
	}
	_ = c.recorder.Append(audit.Record{
		Command:     req.CommandName,
		RequestHash: requestHash,
		Attempt:     attempt,
		Model:       req.Model,
		Decision:    string(decision),
		Diagnostics: diagnostics,
	})
}

func failingCitations(citations []citation.Citation) []citation.Citation {
	failing := make([]citation.Citation, 0, len(citations))
	for _, item := range citations {
		if item.Status == citation.StatusPatternInvalid || item.Status == citation.StatusNotFound {
			failing = append(failing, item)
		}
	}
	return failing
}

func citationDiagnostics(failing []citation.Citation) []string {
	diagnostics := make([]string, 0, len(failing))
	for _, item := range failing {
		form := item.Normalized
		if form == "" {
			form = item.Raw
		}
		reason := string(item.Status)
		if item.InvalidReason != "" {
			reason = item.InvalidReason
		}
		diagnostics = append(diagnostics, fmt.Sprintf("%s (%s)", form, reason))
	}
	return diagnostics
}

func appendUniqueWarning(warnings []string, warning string) []string {
	trimmed := strings.TrimSpace(warning)
	if trimmed == "" {
		return warnings
	}
	for _, existing := range warnings {
		if strings.EqualFold(strings.TrimSpace(existing), trimmed) {
			return warnings
		}
	}
	return append(warnings, trimmed)
}

func hashRequest(req Request) string {
	sum := sha256.Sum256([]byte(req.CommandName + "\x00" + req.Model + "\x00" + req.Prompt))
	return hex.EncodeToString(sum[:])[:16]
}
