package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOutline means no outline file, demo tree or provider proposal
	// could establish a table of contents.
	ErrNoOutline = errors.New("no outline available and no provider configured")
	// ErrEmptyContent is returned when a leaf section comes back blank.
	ErrEmptyContent = errors.New("empty content")
	// ErrNoProvider is returned by provider calls when none is configured.
	ErrNoProvider = errors.New("no content provider configured")
)

// ContentError is a fatal failure generating one section.
type ContentError struct {
	Number string
	Title  string
	Err    error
}

func (e *ContentError) Error() string {
	if errors.Is(e.Err, ErrEmptyContent) {
		return fmt.Sprintf("empty content for section %s %s", e.Number, e.Title)
	}
	return fmt.Sprintf("section %s %s: %v", e.Number, e.Title, e.Err)
}

func (e *ContentError) Unwrap() error { return e.Err }
