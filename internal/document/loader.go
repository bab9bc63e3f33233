package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Load reads the file at path and returns its text as a Document.
// PDF files are converted to plain text; anything else is read as UTF-8 text.
// A missing file is reported as an error so the ingest job can abort.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s was not found: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	var text string
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = extractPDFText(data)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from %s: %w", path, err)
		}
	} else {
		text = sanitizeText(data)
	}

	return &Document{Source: path, Text: text}, nil
}

// extractPDFText pulls the plain text stream out of a PDF. Extraction
// failures fall back to scanning for printable runes, which recovers text
// from PDFs the reader cannot fully parse.
func extractPDFText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		if reader, err := r.GetPlainText(); err == nil {
			if out, err := io.ReadAll(reader); err == nil && len(out) > 0 {
				return string(out), nil
			}
		}
	}
	return extractPrintableText(data), nil
}

func extractPrintableText(in []byte) string {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			b := in[0]
			if b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if isPrintableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func isPrintableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	return r >= 32 && r != 0x7f
}

// sanitizeText drops invalid UTF-8 sequences from plain-text input.
func sanitizeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}
