package pipeline

import (
	"fmt"
	"strings"

	"counsel/core/internal/citation"
)

// CitationVerificationError is the terminal failure of a strict profile
// once retries are exhausted. It carries every unresolved citation so the
// CLI layer surfaces specifics, not a bare message.
type CitationVerificationError struct {
	Command    string
	Attempts   int
	Unresolved []citation.Citation
}

func (e CitationVerificationError) Error() string {
	forms := make([]string, 0, len(e.Unresolved))
	for _, c := range e.Unresolved {
		form := c.Normalized
		if form == "" {
			form = c.Raw
		}
		forms = append(forms, form)
	}
	return fmt.Sprintf("%s: %d citation(s) unresolved after %d attempt(s): %s",
		e.Command, len(e.Unresolved), e.Attempts, strings.Join(forms, ", "))
}

// ContentUnsoundError is terminal only at call sites whose profile marks
// soundness blocking.
type ContentUnsoundError struct {
	Command   string
	Rationale string
}

func (e ContentUnsoundError) Error() string {
	return fmt.Sprintf("%s: content flagged as unsound: %s", e.Command, e.Rationale)
}
