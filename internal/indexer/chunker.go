package indexer

import (
	"fmt"
	"strings"

	"handbook-ai/internal/document"
)

// separators are tried in order when choosing a cut point, from coarsest
// (paragraph break) to finest (word break). A hard character cut is the
// final fallback.
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits document text into overlapping fixed-size segments.
// Cut points prefer paragraph boundaries, then line and sentence
// boundaries, then word breaks; the next chunk re-includes the last
// ChunkOverlap runes of the previous one.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a Chunker. chunkOverlap must be smaller than chunkSize.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than 0, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split chunks the document text. Offsets are measured in runes so that
// multi-byte characters never get cut mid-sequence. Empty text yields zero
// chunks; documents shorter than the chunk size yield exactly one.
func (c *Chunker) Split(doc *document.Document) []Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + c.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, Chunk{
				Source: doc.Source,
				Index:  len(chunks),
				Start:  start,
				End:    len(runes),
				Text:   string(runes[start:]),
			})
			break
		}

		// The cut must land after the overlap region or the window would
		// never advance.
		minEnd := start + c.chunkOverlap + 1
		end = c.findCut(runes, minEnd, end)

		chunks = append(chunks, Chunk{
			Source: doc.Source,
			Index:  len(chunks),
			Start:  start,
			End:    end,
			Text:   string(runes[start:end]),
		})
		start = end - c.chunkOverlap
	}

	return chunks
}

// findCut returns the best cut position in (minEnd, maxEnd], trying each
// separator from coarsest to finest. The separator stays with the earlier
// chunk. When no separator fits, the cut falls at maxEnd.
func (c *Chunker) findCut(runes []rune, minEnd, maxEnd int) int {
	window := string(runes[minEnd:maxEnd])
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i >= 0 {
			cut := minEnd + len([]rune(window[:i])) + len([]rune(sep))
			if cut > minEnd && cut <= maxEnd {
				return cut
			}
		}
	}
	return maxEnd
}
