package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"counsel/core/internal/audit"
	"counsel/core/internal/chunk"
	"counsel/core/internal/citation"
	"counsel/core/internal/config"
	"counsel/core/internal/db"
	"counsel/core/internal/pipeline"
	"counsel/core/internal/provider"
	"counsel/core/internal/soundness"
	"counsel/core/internal/verify"
)

const (
	exitAuth      = 2
	exitCitations = 3
	exitUnsound   = 4
	exitProvider  = 5
	exitUsage     = 64
)

func main() {
	if len(os.Args) < 2 {
		log.Printf("usage: counsel <command> < prompt-on-stdin")
		os.Exit(exitUsage)
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	promptBytes, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("read prompt: %v", err)
	}

	// embed-chunks is a local utility: it splits the input at the embedding
	// threshold and never touches the provider.
	if command == "embed-chunks" {
		chunks, err := splitOversized(string(promptBytes), cfg.EmbedChunkMaxChars)
		if err != nil {
			log.Fatalf("chunk input: %v", err)
		}
		for _, part := range chunks {
			fmt.Println(part)
			fmt.Println("---")
		}
		return
	}

	logger, err := audit.Open(cfg.AuditDir, command, audit.Encoding(cfg.AuditEncoding))
	if err != nil {
		log.Fatalf("open audit log: %v", err)
	}
	defer logger.Close()

	var store verify.Store
	if cfg.CacheDatabaseURL != "" {
		database, err := db.Open(cfg)
		if err != nil {
			log.Fatalf("open cache db: %v", err)
		}
		defer database.Close()
		cache, err := verify.NewCache(database, 0)
		if err != nil {
			log.Fatalf("init citation cache: %v", err)
		}
		store = cache
	}

	gateway := provider.NewClient(cfg, nil).
		WithNotifier(func(model string, elapsed time.Duration) {
			fmt.Fprintf(os.Stderr, "still waiting on %s (%s elapsed)\n", model, elapsed.Round(time.Second))
		}).
		WithObserver(func(event provider.AttemptEvent) {
			diagnostic := fmt.Sprintf("completed in %s", event.Elapsed.Round(time.Millisecond))
			if event.Err != nil {
				diagnostic = event.Err.Error()
			}
			_ = logger.Append(audit.Record{
				Command:     command,
				Attempt:     event.Attempt,
				Model:       event.Model,
				Decision:    "transport_attempt",
				Diagnostics: []string{diagnostic},
			})
		})

	sources := make([]verify.Searcher, 0, len(cfg.VerifySourceURLs))
	for i, sourceURL := range cfg.VerifySourceURLs {
		sources = append(sources, verify.NewSourceClient(fmt.Sprintf("source-%d", i+1), sourceURL, cfg.VerifyAPIKey, nil))
	}
	verifier := verify.NewVerifier(sources, store, verify.Config{
		Tier:          verify.Tier(cfg.VerifyTier),
		LookupTimeout: cfg.VerifyTimeout,
		MaxConcurrent: cfg.VerifyMaxConcurrent,
	})

	checker := soundness.NewChecker(gateway, cfg.SoundnessModel)
	controller := pipeline.NewController(gateway, verifier, checker, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompts, err := splitOversized(string(promptBytes), cfg.ChunkMaxChars)
	if err != nil {
		log.Fatalf("chunk input: %v", err)
	}

	texts := make([]string, 0, len(prompts))
	warnings := make([]string, 0, 4)
	for _, prompt := range prompts {
		outcome, err := controller.Run(ctx, pipeline.Request{
			CommandName: command,
			Prompt:      prompt,
			Model:       cfg.DefaultModel,
			Policy:      pipeline.ProfileFor(command),
			MaxRetries:  2,
			MaxTokens:   cfg.MaxOutputTokens,
		})
		if err != nil {
			reportFailure(command, err)
		}
		texts = append(texts, outcome.FinalText)
		warnings = append(warnings, outcome.Warnings...)
	}

	fmt.Println(strings.Join(texts, "\n\n"))
	for _, warning := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	fmt.Fprintf(os.Stderr, "audit log: %s\n", logger.Path())
}

// splitOversized chunks documents that exceed the configured limit so each
// pipeline call stays within bounds. Normal-sized prompts pass through.
func splitOversized(prompt string, maxChars int) ([]string, error) {
	if len(prompt) <= maxChars {
		return []string{prompt}, nil
	}
	splitter := chunk.NewSplitter(citation.NewExtractor(citation.DefaultRules()))
	chunks, err := splitter.Split(prompt, maxChars)
	if err != nil {
		return nil, err
	}
	prompts := make([]string, 0, len(chunks))
	for _, part := range chunks {
		prompts = append(prompts, part.Text)
	}
	return prompts, nil
}

func reportFailure(command string, err error) {
	log.Printf("%s failed: %v", command, err)

	var authErr provider.AuthError
	var citationErr pipeline.CitationVerificationError
	var unsoundErr pipeline.ContentUnsoundError

	switch {
	case errors.As(err, &authErr):
		os.Exit(exitAuth)
	case errors.As(err, &citationErr):
		os.Exit(exitCitations)
	case errors.As(err, &unsoundErr):
		os.Exit(exitUnsound)
	default:
		os.Exit(exitProvider)
	}
}
