package outline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedExtension means no loader handles a file's extension.
var ErrUnsupportedExtension = errors.New("unsupported outline extension")

// Loader converts an outline document into outline text that Ingest can parse.
type Loader interface {
	Load(r io.Reader, filename string) (string, error)
}

var loaders = map[string]func() Loader{
	".txt":      func() Loader { return &TextLoader{} },
	".md":       func() Loader { return &TextLoader{} },
	".markdown": func() Loader { return &TextLoader{} },
	".csv":      func() Loader { return &CSVLoader{} },
	".html":     func() Loader { return &HTMLLoader{} },
	".htm":      func() Loader { return &HTMLLoader{} },
	".pdf":      func() Loader { return &PDFLoader{} },
	".docx":     func() Loader { return &DOCXLoader{} },
}

// SupportedExtensions lists the outline file extensions that can be loaded,
// sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(loaders))
	for ext := range loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupportedExtension checks if a file extension can be loaded.
func IsSupportedExtension(filename string) bool {
	_, ok := loaders[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// CheckPath reports an error when path has no loader or does not exist.
func CheckPath(path string) error {
	if !IsSupportedExtension(path) {
		return fmt.Errorf("%w %q (supported: %s)", ErrUnsupportedExtension, filepath.Ext(path), strings.Join(SupportedExtensions(), ", "))
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("outline file: %w", err)
	}
	return nil
}

// ForFile returns the loader for a filename.
func ForFile(filename string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	newLoader, ok := loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, ext)
	}
	return newLoader(), nil
}

// LoadFile opens path and converts it to outline text. A missing file is
// reported with an error wrapping os.ErrNotExist.
func LoadFile(path string, pdfFallback bool) (string, error) {
	loader, err := ForFile(path)
	if err != nil {
		return "", err
	}
	if pl, ok := loader.(*PDFLoader); ok {
		pl.FallbackPdftotext = pdfFallback
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open outline: %w", err)
	}
	defer f.Close()
	return loader.Load(f, filepath.Base(path))
}

// TextLoader passes Markdown and plain text through unchanged.
type TextLoader struct{}

func (l *TextLoader) Load(r io.Reader, filename string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
