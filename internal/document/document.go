package document

// Document is the raw extracted text of a source file plus its source
// identifier. It is immutable once loaded.
type Document struct {
	// Source identifies where the text came from (file path or blob key).
	Source string
	// Text is the full linear text extraction.
	Text string
}
