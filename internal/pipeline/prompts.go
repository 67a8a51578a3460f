package pipeline

import (
	"fmt"
	"strings"

	"counsel/core/internal/citation"
)

// buildCorrectivePrompt asks the model to fix the specific citations that
// failed, keeping everything else in the draft intact.
func buildCorrectivePrompt(original, draft string, failing []citation.Citation) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(original))
	b.WriteString("\n\nYour previous draft contained citations that failed verification. ")
	b.WriteString("Correct or replace each one with a real, accurately cited authority, or remove the claim it supports. ")
	b.WriteString("Do not change any other part of the draft.\n\nFailing citations:\n")
	for _, c := range failing {
		form := c.Normalized
		if form == "" {
			form = c.Raw
		}
		b.WriteString("- ")
		b.WriteString(form)
		switch {
		case c.Status == citation.StatusNotFound:
			b.WriteString(" (no matching authority found)")
		case c.InvalidReason != "":
			fmt.Fprintf(&b, " (%s)", c.InvalidReason)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nPrevious draft:\n")
	b.WriteString(strings.TrimSpace(draft))
	return strings.TrimSpace(b.String())
}
