// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline turns raw document bytes into a plain-text transcript.
// It drives a parser.Parser page by page, joins fragments with single
// spaces within a page and ends every page with a newline. An extraction is
// all or nothing: any failure discards the text gathered so far.
//
// Each call runs through Idle, Loading and then exactly one of Succeeded or
// Failed. Calls are independent and may run concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pdftext/internal/parser"
)

// Extractor runs extractions against one parser. It keeps no state between
// calls apart from a pointer to the most recent invocation.
type Extractor struct {
	parser      parser.Parser
	stepTimeout time.Duration
	log         zerolog.Logger
	observers   []Observer

	latest atomic.Pointer[Invocation]
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStepTimeout bounds each suspension point: opening the session, and
// each page's retrieval and fragment read. Zero means no deadline.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.stepTimeout = d }
}

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// WithObserver registers an observer for every invocation.
func WithObserver(obs Observer) Option {
	return func(e *Extractor) { e.observers = append(e.observers, obs) }
}

// New returns an Extractor backed by p.
func New(p parser.Parser, opts ...Option) *Extractor {
	e := &Extractor{
		parser: p,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Latest returns the state of the most recent invocation, or Idle if there
// has been none.
func (e *Extractor) Latest() State {
	if inv := e.latest.Load(); inv != nil {
		return inv.State()
	}
	return State{Phase: Idle}
}

// Extract runs one invocation over data and returns its outcome.
func (e *Extractor) Extract(ctx context.Context, data []byte, obs ...Observer) Outcome {
	return e.Run(ctx, data, obs...).Outcome()
}

// Run is Extract, returning the finished invocation so the caller can
// inspect its history. Observers passed here apply to this call only.
//
// The session is closed before the terminal state is published, except
// when a step times out or is canceled while the parser call is still
// running: then the session is closed after that call returns, which may
// be after Run has returned.
func (e *Extractor) Run(ctx context.Context, data []byte, obs ...Observer) *Invocation {
	inv := newInvocation(append(slices.Clone(e.observers), obs...))
	e.latest.Store(inv)

	start := time.Now()
	_ = inv.transition(State{Phase: Loading})

	transcript, xerr := e.extract(ctx, data)

	log := e.log.With().Int("bytes", len(data)).Dur("elapsed", time.Since(start)).Logger()
	if xerr != nil {
		log.Debug().Str("kind", string(xerr.Kind)).Int("page", xerr.Page).Msg(xerr.Detail)
		_ = inv.transition(State{Phase: Failed, Err: xerr})
		return inv
	}
	log.Debug().Int("chars", len(transcript)).Msg("extraction succeeded")
	_ = inv.transition(State{Phase: Succeeded, Transcript: transcript})
	return inv
}

// extract does the work between Loading and the terminal transition. The
// session is released before it returns, unless a parser call is still in
// flight after its step was abandoned; then release happens when that call
// returns.
func (e *Extractor) extract(ctx context.Context, data []byte) (string, *ExtractionError) {
	session, _, err := await(ctx, e.stepTimeout, func(ctx context.Context) (parser.Session, error) {
		return e.parser.Open(ctx, data)
	}, closeSession)
	if err != nil {
		return "", classify(err, MalformedDocument, 0)
	}
	if session == nil {
		return "", &ExtractionError{Kind: MalformedDocument, Detail: "parser returned no session"}
	}

	var pending <-chan struct{}
	defer func() {
		if pending == nil {
			e.release(session)
			return
		}
		go func() {
			<-pending
			e.release(session)
		}()
	}()

	count := session.PageCount()
	if count < 0 {
		return "", &ExtractionError{Kind: MalformedDocument, Detail: fmt.Sprintf("negative page count %d", count)}
	}
	e.log.Debug().Int("pages", count).Msg("session opened")

	var b strings.Builder
	for index := 1; index <= count; index++ {
		var text string
		text, pending, err = await(ctx, e.stepTimeout, func(ctx context.Context) (string, error) {
			return readPage(ctx, session, index)
		}, nil)
		if err != nil {
			return "", classify(err, PageReadError, index)
		}
		b.WriteString(text)
		b.WriteByte('\n')
		e.log.Debug().Int("page", index).Int("pages", count).Msg("page read")
	}
	return b.String(), nil
}

func (e *Extractor) release(s parser.Session) {
	if err := s.Close(); err != nil {
		e.log.Warn().Err(err).Msg("closing parser session")
	}
}

func closeSession(s parser.Session) {
	if s != nil {
		_ = s.Close()
	}
}

// readPage retrieves one page and joins its fragments with single spaces.
func readPage(ctx context.Context, s parser.Session, index int) (string, error) {
	page, err := s.Page(ctx, index)
	if err != nil {
		return "", err
	}
	if page == nil {
		return "", errors.New("parser returned no page")
	}

	var b strings.Builder
	first := true
	for frag, err := range page.Fragments(ctx) {
		if err != nil {
			return "", err
		}
		if !first {
			b.WriteByte(' ')
		}
		b.WriteString(frag)
		first = false
	}
	return b.String(), nil
}

type result[T any] struct {
	v   T
	err error
}

// await runs fn on its own goroutine and waits for it, the step deadline or
// ctx, whichever comes first. Panics in fn become errors. When the wait is
// abandoned, the returned channel closes once fn has returned, and a value
// fn produces late is handed to discard.
func await[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error), discard func(T)) (T, <-chan struct{}, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan struct{})
	ch := make(chan result[T], 1)
	go func() {
		defer close(done)
		var r result[T]
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.err = &panicError{value: p}
				}
			}()
			r.v, r.err = fn(ctx)
		}()
		ch <- r
	}()

	select {
	case r := <-ch:
		return r.v, nil, r.err
	case <-ctx.Done():
		go func() {
			r := <-ch
			if r.err == nil && discard != nil {
				discard(r.v)
			}
		}()
		var zero T
		return zero, done, ctx.Err()
	}
}

// classify maps an error from a step into the pipeline taxonomy. Context
// errors become Timeout or Canceled; anything else is the step's kind.
func classify(err error, kind ErrorKind, page int) *ExtractionError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = Timeout
	case errors.Is(err, context.Canceled):
		kind = Canceled
	}

	detail := err.Error()
	if page > 0 {
		detail = fmt.Sprintf("page %d: %s", page, detail)
	}
	return &ExtractionError{Kind: kind, Page: page, Detail: detail, cause: err}
}
