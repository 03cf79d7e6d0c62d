package services

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"baliance.com/gooxml/document"
	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedType is returned for file extensions the extractor
	// cannot handle.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// ExtractorService pulls plain text out of PDF, DOCX and TXT files.
// Dispatch is purely on the declared filename extension. There is no OCR
// fallback: image-only PDFs come back near-empty and callers detect that
// by length.
type ExtractorService struct{}

func NewExtractorService() *ExtractorService {
	return &ExtractorService{}
}

// Extract returns the text content of the file at path. The filename, not
// the path, decides the format.
func (s *ExtractorService) Extract(path, filename string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("file not found: %s: %w", path, fs.ErrNotExist)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return extractPDF(path)
	case ".docx", ".doc":
		return extractDOCX(path)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

// extractPDF concatenates per-page text with blank-line separators. Pages
// whose text extraction fails are skipped rather than failing the file;
// some pages carry only images.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var parts []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func extractDOCX(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var sb strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
