// Package ingest turns files, uploads and web pages into documents.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

// ErrUnsupported is returned for file types that cannot be ingested.
var ErrUnsupported = errors.New("unsupported file type")

// LoadFile reads a .pdf, .txt or .md file from disk.
func LoadFile(path string) (domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf", ".txt", ".md":
	default:
		return domain.Document{}, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	name := filepath.Base(path)
	if ext == ".pdf" {
		return FromPDF(name, data)
	}
	return FromText(name, string(data)), nil
}

// FromText wraps plain text as a single-page document.
func FromText(name, text string) domain.Document {
	return domain.Document{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      domain.KindText,
		Text:      strings.ToValidUTF8(text, ""),
		PageCount: 1,
		Size:      int64(len(text)),
		CreatedAt: time.Now(),
	}
}

// FromPDF extracts the plain text of a PDF held in memory.
func FromPDF(name string, data []byte) (doc domain.Document, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", name, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.Document{}, fmt.Errorf("open pdf %s: %w", name, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return domain.Document{}, fmt.Errorf("read pdf %s: %w", name, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return domain.Document{}, fmt.Errorf("read pdf %s: %w", name, err)
	}
	return domain.Document{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      domain.KindPDF,
		Text:      strings.TrimSpace(buf.String()),
		PageCount: r.NumPage(),
		Size:      int64(len(data)),
		CreatedAt: time.Now(),
	}, nil
}

// Preview returns at most limit runes of text, collapsing whitespace.
func Preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
