// Package extract pulls plain text out of documents so their passages can be scored.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxBytes is the largest file Extract will read.
const DefaultMaxBytes = 64 << 20

type extractFunc func(content []byte) (string, error)

var formats = map[string]extractFunc{
	".txt":  extractPlain,
	".md":   extractPlain,
	".rst":  extractPlain,
	".html": extractHTML,
	".htm":  extractHTML,
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".xlsx": extractExcel,
	".pptx": extractPPTX,
	".odp":  extractODP,
	".ods":  extractODS,
	".odt":  extractCat,
	".rtf":  extractCat,
}

// Supported reports whether ext (with leading dot, any case) has a dedicated extractor.
func Supported(ext string) bool {
	_, ok := formats[strings.ToLower(ext)]
	return ok
}

// Extensions returns the supported extensions, sorted.
func Extensions() []string {
	out := make([]string, 0, len(formats))
	for ext := range formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Document is the text of one file.
type Document struct {
	Path   string
	Format string
	Text   string
}

// Extractor extracts plain text from document files.
type Extractor struct {
	maxBytes int64
}

// NewExtractor returns an Extractor that refuses files larger than maxBytes
// (DefaultMaxBytes when maxBytes <= 0).
func NewExtractor(maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Extractor{maxBytes: maxBytes}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > e.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), e.maxBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	text, err := e.ExtractBytes(content, ext)
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Format: strings.TrimPrefix(ext, "."), Text: text}, nil
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are
// read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if fn, ok := formats[strings.ToLower(ext)]; ok {
		return fn(content)
	}
	return extractPlain(content)
}
