// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "fmt"

// ErrorKind classifies why an extraction failed.
type ErrorKind string

const (
	// MalformedDocument: the bytes could not be opened as a document.
	MalformedDocument ErrorKind = "malformed_document"

	// PageReadError: one page could not be read after the document opened.
	PageReadError ErrorKind = "page_read_error"

	// Timeout: a step ran past its deadline.
	Timeout ErrorKind = "timeout"

	// Canceled: the caller abandoned the invocation.
	Canceled ErrorKind = "canceled"
)

// Message returns the one user-facing message for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case MalformedDocument:
		return "Failed to extract text from the PDF. Please try another file."
	case PageReadError:
		return "A page of the PDF could not be read. Please try another file."
	case Timeout:
		return "Extracting text from the PDF took too long."
	case Canceled:
		return "Text extraction was canceled."
	default:
		return "Text extraction failed."
	}
}

// ExtractionError is the only error type that leaves the pipeline.
type ExtractionError struct {
	Kind ErrorKind `json:"kind" yaml:"kind"`

	// Page is the 1-based index of the failing page, or zero when the
	// failure is not tied to a page.
	Page int `json:"page,omitempty" yaml:"page,omitempty"`

	// Detail is the underlying cause, preserved for diagnostics.
	Detail string `json:"detail" yaml:"detail"`

	cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ExtractionError) Unwrap() error { return e.cause }

// Is matches another ExtractionError of the same kind, so callers can write
// errors.Is(err, pipeline.ErrTimeout).
func (e *ExtractionError) Is(target error) bool {
	t, ok := target.(*ExtractionError)
	return ok && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrMalformedDocument = &ExtractionError{Kind: MalformedDocument}
	ErrPageRead          = &ExtractionError{Kind: PageReadError}
	ErrTimeout           = &ExtractionError{Kind: Timeout}
	ErrCanceled          = &ExtractionError{Kind: Canceled}
)

// Outcome is the result of one invocation: a transcript or an error, never
// both.
type Outcome struct {
	Transcript string           `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	Err        *ExtractionError `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the invocation succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// panicError carries a value recovered from a parser panic.
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("parser panic: %v", p.value)
}
