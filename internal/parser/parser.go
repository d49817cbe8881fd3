// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parser defines the document parser boundary: something that turns
// raw document bytes into a page count and, per page, an ordered sequence of
// text fragments. The extraction pipeline depends only on these interfaces;
// backends live alongside them.
package parser

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/pdiddy/pdftext/internal/container"
	"github.com/pdiddy/pdftext/pkg/types"
)

var (
	// ErrMalformed reports bytes that cannot be opened as a document:
	// bad header, corruption, truncation, unsupported encryption.
	ErrMalformed = errors.New("malformed document")

	// ErrPageRead reports a page that could not be produced after the
	// session opened.
	ErrPageRead = errors.New("page read failed")
)

// Parser opens parser sessions over raw document bytes.
type Parser interface {
	// Open parses data and returns a session. Errors wrap ErrMalformed when
	// the bytes are not a readable document.
	Open(ctx context.Context, data []byte) (Session, error)
}

// Session is an open document. It is owned by one extraction invocation and
// must be closed by it.
type Session interface {
	// PageCount returns the number of pages, zero for an empty document.
	PageCount() int

	// Page returns the page at a 1-based index. Errors wrap ErrPageRead.
	Page(ctx context.Context, index int) (Page, error)

	// Close releases the session.
	Close() error
}

// Page is one page's extractable content.
type Page interface {
	// Fragments yields text fragments in the order the parser emits them.
	// A non-nil error ends the sequence.
	Fragments(ctx context.Context) iter.Seq2[string, error]
}

// New returns the backend selected by cfg.Backend. The runtime is used only
// by the pdftotext backend and may be nil otherwise.
func New(cfg types.ParserConfig, rt container.Runtime) (Parser, error) {
	switch cfg.Backend {
	case types.BackendNative, "":
		return NewNativeParser(cfg.Strict), nil
	case types.BackendPdftotext:
		if rt == nil {
			return nil, fmt.Errorf("pdftotext backend requires a container runtime")
		}
		if err := rt.ImageExists(cfg.Image); err != nil {
			return nil, fmt.Errorf("pdftotext image not available in %s: %w", rt.Name(), err)
		}
		return NewPdftotextParser(rt, cfg.Image), nil
	default:
		return nil, fmt.Errorf("unknown parser backend %q (want %s or %s)",
			cfg.Backend, types.BackendNative, types.BackendPdftotext)
	}
}

// malformed wraps err so that errors.Is(err, ErrMalformed) holds.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// pageFailed wraps err so that errors.Is(err, ErrPageRead) holds.
func pageFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPageRead, fmt.Sprintf(format, args...))
}
