// Package store persists rendered artifacts.
package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
)

// Artifact names one persisted output of a run.
type Artifact string

const (
	Manuscript         Artifact = "manuscript.md"
	ManuscriptChapters Artifact = "manuscript_chapters.md"
	DiagramSuggestions Artifact = "diagram_suggestions.md"
	ManuscriptDOCX     Artifact = "manuscript.docx"
)

// Artifacts lists every known artifact.
var Artifacts = []Artifact{Manuscript, ManuscriptChapters, DiagramSuggestions, ManuscriptDOCX}

// ErrNotFound is returned by Get for an artifact that was never written.
var ErrNotFound = errors.New("artifact not found")

// Valid reports whether a is a known artifact.
func (a Artifact) Valid() bool {
	for _, k := range Artifacts {
		if a == k {
			return true
		}
	}
	return false
}

// Markdown reports whether the artifact is a Markdown document.
func (a Artifact) Markdown() bool {
	return a != ManuscriptDOCX
}

// Store persists artifacts.
type Store interface {
	Put(ctx context.Context, a Artifact, data []byte) error
}

// Reader reads persisted artifacts back.
type Reader interface {
	Get(ctx context.Context, a Artifact) ([]byte, error)
}

// Multi writes to every store and joins their errors.
type Multi []Store

func (m Multi) Put(ctx context.Context, a Artifact, data []byte) error {
	var errs []error
	for _, s := range m {
		if err := s.Put(ctx, a, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
