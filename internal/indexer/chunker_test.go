package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"handbook-ai/internal/document"
)

func TestNewChunker_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewChunker(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestChunker_Split_EmptyText(t *testing.T) {
	c, _ := NewChunker(1000, 200)
	chunks := c.Split(&document.Document{Source: "empty.txt", Text: ""})
	if len(chunks) != 0 {
		t.Errorf("Split() on empty text = %d chunks, want 0", len(chunks))
	}
}

func TestChunker_Split_ShortDocument(t *testing.T) {
	c, _ := NewChunker(1000, 200)
	doc := &document.Document{Source: "short.txt", Text: "A short handbook."}

	chunks := c.Split(doc)
	if len(chunks) != 1 {
		t.Fatalf("Split() = %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != doc.Text {
		t.Errorf("chunk text = %q, want full document", chunks[0].Text)
	}
	if chunks[0].Source != "short.txt" || chunks[0].Index != 0 {
		t.Errorf("chunk metadata = %+v", chunks[0])
	}
}

// buildText produces deterministic paragraph-structured text of roughly n runes.
func buildText(n int) string {
	var b strings.Builder
	sentence := "Graduate students must maintain satisfactory academic progress. "
	for b.Len() < n {
		b.WriteString(sentence)
		b.WriteString(sentence)
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestChunker_Split_Properties(t *testing.T) {
	const size, overlap = 300, 60
	c, _ := NewChunker(size, overlap)
	doc := &document.Document{Source: "handbook.txt", Text: buildText(5000)}

	chunks := c.Split(doc)
	if len(chunks) < 2 {
		t.Fatalf("Split() = %d chunks, want several", len(chunks))
	}

	// Every chunk stays within the configured size.
	for _, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Text); n > size {
			t.Errorf("chunk %d has %d runes, exceeds %d", ch.Index, n, size)
		}
	}

	// Consecutive chunks share exactly the overlap.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		if len(cur) < overlap {
			continue // tail shorter than the overlap
		}
		if string(prev[len(prev)-overlap:]) != string(cur[:overlap]) {
			t.Errorf("chunks %d and %d do not share the overlap region", i-1, i)
		}
	}

	// Dropping each chunk's overlap prefix reconstructs the document.
	var b strings.Builder
	b.WriteString(chunks[0].Text)
	for i := 1; i < len(chunks); i++ {
		cur := []rune(chunks[i].Text)
		b.WriteString(string(cur[overlap:]))
	}
	if b.String() != doc.Text {
		t.Error("concatenating chunks minus overlaps does not reconstruct the document")
	}

	// Indices and offsets are consistent.
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if ch.Source != "handbook.txt" {
			t.Errorf("chunk %d has source %q", i, ch.Source)
		}
		if got := utf8.RuneCountInString(ch.Text); ch.End-ch.Start != got {
			t.Errorf("chunk %d offsets span %d runes, text has %d", i, ch.End-ch.Start, got)
		}
	}
}

func TestChunker_Split_Deterministic(t *testing.T) {
	c, _ := NewChunker(1000, 200)
	doc := &document.Document{Source: "handbook.txt", Text: buildText(9000)}

	first := c.Split(doc)
	second := c.Split(doc)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunker_Split_PrefersParagraphBoundaries(t *testing.T) {
	c, _ := NewChunker(100, 20)
	para := strings.Repeat("alpha beta gamma delta. ", 3) // ~72 runes
	doc := &document.Document{Source: "p.txt", Text: para + "\n\n" + para + "\n\n" + para}

	chunks := c.Split(doc)
	if len(chunks) < 2 {
		t.Fatalf("Split() = %d chunks, want several", len(chunks))
	}
	// The first cut should land on the paragraph break, not mid-word.
	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Errorf("first chunk should end at a paragraph boundary, got %q", chunks[0].Text)
	}
}

func TestChunker_Split_MultiByteRunes(t *testing.T) {
	c, _ := NewChunker(50, 10)
	doc := &document.Document{Source: "utf8.txt", Text: strings.Repeat("日本語のテキスト ", 40)}

	chunks := c.Split(doc)
	for _, ch := range chunks {
		if !utf8.ValidString(ch.Text) {
			t.Fatalf("chunk %d contains invalid UTF-8", ch.Index)
		}
		if utf8.RuneCountInString(ch.Text) > 50 {
			t.Errorf("chunk %d exceeds size in runes", ch.Index)
		}
	}
}
