package pipeline

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"counsel/core/internal/citation"
)

const defaultFanoutWidth = 4

// FanoutResult carries every branch outcome plus the validation checkpoint
// run again over the merged text.
type FanoutResult struct {
	Branches        []Outcome
	MergedText      string
	MergedCitations []citation.Citation
	MergedWarnings  []string
}

// RunFanout executes parallel generation branches, each through the full
// per-request state machine (so each branch gets its own validation
// checkpoint), then validates the merged result once more. Branches share
// no mutable state; a hard branch failure cancels the rest.
func (c Controller) RunFanout(ctx context.Context, requests []Request) (FanoutResult, error) {
	if len(requests) == 0 {
		return FanoutResult{}, nil
	}

	outcomes := make([]Outcome, len(requests))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(defaultFanoutWidth)
	for i, req := range requests {
		i, req := i, req
		group.Go(func() error {
			outcome, err := c.Run(groupCtx, req)
			outcomes[i] = outcome
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return FanoutResult{Branches: outcomes}, err
	}

	texts := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		if strings.TrimSpace(outcome.FinalText) != "" {
			texts = append(texts, strings.TrimSpace(outcome.FinalText))
		}
	}
	merged := strings.Join(texts, "\n\n")

	mergedCitations := c.extractor.Extract(merged)
	warnings := make([]string, 0, 4)
	for i := range mergedCitations {
		mergedCitations[i] = c.validator.Validate(mergedCitations[i])
		if mergedCitations[i].Status == citation.StatusPatternInvalid {
			warnings = appendUniqueWarning(warnings, "merged result citation "+mergedCitations[i].Raw+" is "+mergedCitations[i].InvalidReason)
		}
	}

	return FanoutResult{
		Branches:        outcomes,
		MergedText:      merged,
		MergedCitations: mergedCitations,
		MergedWarnings:  warnings,
	}, nil
}
