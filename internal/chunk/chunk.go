// Package chunk splits oversized documents into bounded segments whose
// boundaries never cut through a citation.
package chunk

import (
	"fmt"
	"strings"

	"counsel/core/internal/citation"
)

// breakLookback caps how far back from the size limit a boundary search
// goes before giving up and cutting hard.
const breakLookback = 2_000

type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

type ChunkingError struct {
	Raw      string
	Span     citation.Span
	MaxChars int
}

func (e ChunkingError) Error() string {
	return fmt.Sprintf("citation %q (%d chars) exceeds chunk limit %d", e.Raw, e.Span.Len(), e.MaxChars)
}

type Splitter struct {
	extractor citation.Extractor
}

func NewSplitter(extractor citation.Extractor) Splitter {
	return Splitter{extractor: extractor}
}

// Split is a pure function of (document, maxChars). Boundaries prefer
// paragraph breaks, then sentence breaks, then word breaks, and never fall
// inside a citation span. Concatenating the chunks in order reproduces the
// document exactly.
func (s Splitter) Split(document string, maxChars int) ([]Chunk, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max chars must be positive, got %d", maxChars)
	}
	if document == "" {
		return nil, nil
	}

	citations := s.extractor.Extract(document)
	for _, c := range citations {
		if c.Span.Len() > maxChars {
			return nil, ChunkingError{Raw: c.Raw, Span: c.Span, MaxChars: maxChars}
		}
	}

	chunks := make([]Chunk, 0, len(document)/maxChars+1)
	pos := 0
	for pos < len(document) {
		if len(document)-pos <= maxChars {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: document[pos:], Start: pos, End: len(document)})
			break
		}

		cut := preferredBreak(document, pos, pos+maxChars)
		cut = outsideCitations(cut, pos, citations)
		if cut <= pos {
			// The natural break landed inside a citation pinned against the
			// chunk start. Fall back to the hard limit; the size check above
			// guarantees the pinned citation fits before it.
			cut = outsideCitations(pos+maxChars, pos, citations)
		}

		chunks = append(chunks, Chunk{Index: len(chunks), Text: document[pos:cut], Start: pos, End: cut})
		pos = cut
	}
	return chunks, nil
}

// preferredBreak searches the tail window before limit for the best natural
// boundary. Hard cut at limit when the window holds no break at all.
func preferredBreak(document string, start, limit int) int {
	window := limit - breakLookback
	if window < start {
		window = start
	}
	tail := document[window:limit]

	if idx := strings.LastIndex(tail, "\n\n"); idx >= 0 {
		return window + idx + 2
	}
	if idx := strings.LastIndex(tail, ". "); idx >= 0 {
		return window + idx + 2
	}
	if idx := strings.LastIndexAny(tail, " \n\t"); idx >= 0 {
		return window + idx + 1
	}
	return limit
}

func outsideCitations(cut, start int, citations []citation.Citation) int {
	for _, c := range citations {
		if c.Span.Contains(cut) {
			if c.Span.Start > start {
				return c.Span.Start
			}
			return start
		}
	}
	return cut
}
