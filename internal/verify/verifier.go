package verify

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"counsel/core/internal/citation"
)

type Tier string

const (
	TierStandard      Tier = "standard"
	TierComprehensive Tier = "comprehensive"
)

const (
	standardResultCap      = 5
	comprehensiveResultCap = 10
	defaultLookupTimeout   = 12 * time.Second
	defaultMaxConcurrent   = 4
)

// Outcome is the verdict for one distinct normalized citation.
type Outcome struct {
	Normalized    string
	Status        citation.Status
	Source        string
	MatchedURL    string
	LowConfidence bool
	Unavailable   bool
}

// Searcher is satisfied by SourceClient.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

// Store is the optional persistent lookup cache.
type Store interface {
	Lookup(ctx context.Context, normalized string) (Outcome, bool, error)
	Save(ctx context.Context, outcome Outcome) error
}

type Config struct {
	Tier          Tier
	LookupTimeout time.Duration
	MaxConcurrent int
}

type Verifier struct {
	sources []Searcher
	store   Store
	cfg     Config
}

func NewVerifier(sources []Searcher, store Store, cfg Config) Verifier {
	if cfg.Tier != TierComprehensive {
		cfg.Tier = TierStandard
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = defaultLookupTimeout
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	return Verifier{sources: sources, store: store, cfg: cfg}
}

// Verify resolves each distinct normalized citation to an Outcome, keyed by
// normalized form. A citation repeated N times costs exactly one lookup.
// Lookups run concurrently through a bounded pool; each carries its own
// timeout and degrades to not_found with a low-confidence flag instead of
// blocking the pipeline.
func (v Verifier) Verify(ctx context.Context, citations []citation.Citation) map[string]Outcome {
	distinct := make([]string, 0, len(citations))
	seen := make(map[string]struct{}, len(citations))
	for _, c := range citations {
		normalized := strings.TrimSpace(c.Normalized)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		distinct = append(distinct, normalized)
	}
	if len(distinct) == 0 {
		return nil
	}

	outcomes := make([]Outcome, len(distinct))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(v.cfg.MaxConcurrent)
	for i, normalized := range distinct {
		i, normalized := i, normalized
		group.Go(func() error {
			outcomes[i] = v.lookup(groupCtx, normalized)
			return nil
		})
	}
	_ = group.Wait()

	byForm := make(map[string]Outcome, len(outcomes))
	for _, outcome := range outcomes {
		byForm[outcome.Normalized] = outcome
	}
	return byForm
}

func (v Verifier) lookup(ctx context.Context, normalized string) Outcome {
	if v.store != nil {
		if cached, ok, err := v.store.Lookup(ctx, normalized); err == nil && ok {
			return cached
		}
	}

	outcome := v.lookupSources(ctx, normalized)
	if v.store != nil && !outcome.Unavailable && !outcome.LowConfidence {
		_ = v.store.Save(ctx, outcome)
	}
	return outcome
}

func (v Verifier) lookupSources(ctx context.Context, normalized string) Outcome {
	resultCap := standardResultCap
	if v.cfg.Tier == TierComprehensive {
		resultCap = comprehensiveResultCap
	}

	failures := 0
	for _, source := range v.sources {
		lookupCtx, cancel := context.WithTimeout(ctx, v.cfg.LookupTimeout)
		results, err := source.Search(lookupCtx, `"`+normalized+`"`, resultCap)
		cancel()
		if err != nil {
			if errors.Is(lookupCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				// Lookup timed out on its own; degrade rather than block.
				return Outcome{Normalized: normalized, Status: citation.StatusNotFound, Source: source.Name(), LowConfidence: true}
			}
			failures++
			continue
		}
		for _, result := range results {
			if matchesCitation(normalized, result) {
				return Outcome{
					Normalized: normalized,
					Status:     citation.StatusVerifiedExternal,
					Source:     source.Name(),
					MatchedURL: result.URL,
				}
			}
		}
	}

	if len(v.sources) == 0 || failures == len(v.sources) {
		return Outcome{Normalized: normalized, Status: citation.StatusNotFound, Unavailable: true, LowConfidence: true}
	}
	return Outcome{Normalized: normalized, Status: citation.StatusNotFound}
}

// matchesCitation treats a ranked result as confirmation when its title or
// snippet contains the normalized form (whitespace-insensitively).
func matchesCitation(normalized string, result SearchResult) bool {
	needle := collapse(normalized)
	if needle == "" {
		return false
	}
	return strings.Contains(collapse(result.Title), needle) || strings.Contains(collapse(result.Snippet), needle)
}

func collapse(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}
