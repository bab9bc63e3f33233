package document

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handbook.txt")
	content := "Section 1. Degree Requirements.\n\nThe minimum GPA is 3.0.\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Source != path {
		t.Errorf("Source = %q, want %q", doc.Source, path)
	}
	if doc.Text != content {
		t.Errorf("Text = %q, want %q", doc.Text, content)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.pdf"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoad_InvalidUTF8Dropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.txt")
	if err := os.WriteFile(path, []byte("valid \xff\xfe text"), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Text != "valid  text" {
		t.Errorf("Text = %q, want invalid bytes removed", doc.Text)
	}
}

func TestExtractPrintableText(t *testing.T) {
	got := extractPrintableText([]byte("abc\x00\x01def\nghi"))
	if got != "abcdef\nghi" {
		t.Errorf("extractPrintableText() = %q", got)
	}
}
