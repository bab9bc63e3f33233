package indexer

// Chunk represents one bounded-size segment of a document.
type Chunk struct {
	Source string // Source identifier copied from the document
	Index  int    // Chunk index within the document (starts at 0)
	Start  int    // Start offset in runes
	End    int    // End offset in runes (exclusive)
	Text   string // Chunk text content
}

// EmbeddedChunk is a Chunk plus its embedding vector. It is created once
// at ingest time and never mutated.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}
