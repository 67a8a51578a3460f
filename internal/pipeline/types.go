// Package pipeline orchestrates drafting, citation checking, soundness
// review, and the retry decision for every command in the tool.
package pipeline

import (
	"counsel/core/internal/citation"
	"counsel/core/internal/soundness"
)

// Request describes one command invocation. It is a value type and never
// mutated by the pipeline.
type Request struct {
	CommandName     string
	Prompt          string
	Model           string
	Policy          Profile
	MaxRetries      int
	Temperature     float64
	MaxTokens       int
	VerifyRequested bool
	Mode            string
}

type Decision string

const (
	DecisionRetry     Decision = "retry"
	DecisionAccept    Decision = "accept"
	DecisionFail      Decision = "fail"
	DecisionCancelled Decision = "cancelled"
)

// Outcome is the terminal result of one Request. Every request ends in
// exactly one of accepted or failed.
type Outcome struct {
	Accepted   bool
	FinalText  string
	Citations  []citation.Citation
	Soundness  soundness.Review
	RetryCount int
	Warnings   []string
	Unresolved []citation.Citation
}
