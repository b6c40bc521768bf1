package rag

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure so the transport can map it to a status.
type Kind string

const (
	KindExtraction      Kind = "extraction"
	KindEmptyContent    Kind = "empty_content"
	KindEmptyCorpus     Kind = "empty_corpus"
	KindSessionNotFound Kind = "session_not_found"
	KindGeneration      Kind = "generation"
	KindEmbedding       Kind = "embedding"
	KindInvalidInput    Kind = "invalid_input"
)

// Error is a pipeline error carrying its kind and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrEmbedding)
// holds for every wrapped embedding failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds a pipeline error of the given kind.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

var (
	ErrExtraction      = NewError(KindExtraction, "document extraction failed", nil)
	ErrEmptyContent    = NewError(KindEmptyContent, "no text content found in documents", nil)
	ErrEmptyCorpus     = NewError(KindEmptyCorpus, "no chunks produced from documents", nil)
	ErrSessionNotFound = NewError(KindSessionNotFound, "session not found", nil)
	ErrGeneration      = NewError(KindGeneration, "answer generation failed", nil)
	ErrEmbedding       = NewError(KindEmbedding, "embedding failed", nil)
	ErrInvalidInput    = NewError(KindInvalidInput, "invalid input", nil)
)

// KindOf returns the kind of err, or "" when err is not a pipeline error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
