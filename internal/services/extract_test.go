package services

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractTXT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := "Chapter 1\n\nPhotosynthesis converts light into chemical energy."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewExtractorService()
	got, err := svc.Extract(path, "notes.txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != content {
		t.Errorf("Extract = %q, want %q", got, content)
	}
}

func TestExtractDispatchesOnFilename(t *testing.T) {
	// The stored file has no extension; the declared filename decides the
	// format.
	dir := t.TempDir()
	path := filepath.Join(dir, "upload-tmp")
	if err := os.WriteFile(path, []byte("plain text body"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewExtractorService()
	got, err := svc.Extract(path, "exam.TXT")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "plain text body" {
		t.Errorf("Extract = %q", got)
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	if err := os.WriteFile(path, []byte{0x89, 0x50}, 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewExtractorService()
	_, err := svc.Extract(path, "image.png")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestExtractMissingFile(t *testing.T) {
	svc := NewExtractorService()
	_, err := svc.Extract(filepath.Join(t.TempDir(), "gone.pdf"), "gone.pdf")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}
