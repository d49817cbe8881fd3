// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch extracts transcripts for many documents, one independent
// pipeline invocation per document, and writes each to <out-dir>/<name>.txt.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pdftext/internal/pipeline"
	"github.com/pdiddy/pdftext/pkg/types"
)

const defaultConcurrency = 4

// Extractor runs one extraction. *pipeline.Extractor implements it.
type Extractor interface {
	Extract(ctx context.Context, data []byte, obs ...pipeline.Observer) pipeline.Outcome
}

// Recorder receives a record of every finished extraction.
type Recorder interface {
	Record(ctx context.Context, rec types.RunRecord) error
}

// Options controls a batch run.
type Options struct {
	types.BatchConfig

	// Backend is recorded with each run.
	Backend types.ParserBackend

	// Recorder is optional.
	Recorder Recorder
}

// Result holds the outcome of a batch run.
type Result struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (r Result) Total() int {
	return r.Extracted + r.Skipped + r.Failed
}

// HasFailures reports whether any document failed.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// ReadDocument reads the document's bytes, from stdin when its path is "-",
// and fingerprints it.
func ReadDocument(doc *types.Document, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if doc.Path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(doc.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", doc.Path, err)
	}
	doc.Fingerprint(data)
	return data, nil
}

// ExtractFile extracts one document and writes its transcript to the output
// directory. If the transcript already exists and Force is unset, it skips
// the document.
func ExtractFile(ctx context.Context, ex Extractor, doc types.Document, opts Options, w io.Writer) types.RunStatus {
	txtPath := filepath.Join(opts.OutDir, doc.Name+".txt")

	if !opts.Force {
		if _, err := os.Stat(txtPath); err == nil {
			fmt.Fprintf(w, "skipped:   %s (already exists)\n", doc.Name)
			return types.StatusSkipped
		}
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:    %s (%v)\n", doc.Name, err)
		return types.StatusFailed
	}

	data, err := ReadDocument(&doc, nil)
	if err != nil {
		fmt.Fprintf(w, "failed:    %s (%v)\n", doc.Name, err)
		return types.StatusFailed
	}

	start := time.Now()
	out := ex.Extract(ctx, data)
	record(ctx, opts, doc, out, start, w)

	if !out.OK() {
		fmt.Fprintf(w, "failed:    %s (%v)\n", doc.Name, out.Err)
		return types.StatusFailed
	}

	if err := os.WriteFile(txtPath, []byte(out.Transcript), 0o644); err != nil {
		fmt.Fprintf(w, "failed:    %s (%v)\n", doc.Name, err)
		return types.StatusFailed
	}

	fmt.Fprintf(w, "extracted: %s (%d chars)\n", doc.Name, len(out.Transcript))
	return types.StatusExtracted
}

// ExtractBatch extracts docs concurrently, at most opts.Concurrency at a
// time, printing one status line per document and a summary. A document
// whose transcript name is already taken by an earlier one fails without
// being read.
func ExtractBatch(ctx context.Context, ex Extractor, docs []types.Document, opts Options, w io.Writer) Result {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	sw := &syncWriter{w: w}
	statuses := make([]types.RunStatus, len(docs))
	owner := make(map[string]string, len(docs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, doc := range docs {
		if first, ok := owner[doc.Name]; ok {
			fmt.Fprintf(sw, "failed:    %s (%s writes the same transcript as %s)\n", doc.Name, doc.Path, first)
			statuses[i] = types.StatusFailed
			continue
		}
		owner[doc.Name] = doc.Path
		g.Go(func() error {
			statuses[i] = ExtractFile(ctx, ex, doc, opts, sw)
			return nil
		})
	}
	_ = g.Wait()

	var result Result
	for _, s := range statuses {
		switch s {
		case types.StatusExtracted:
			result.Extracted++
		case types.StatusSkipped:
			result.Skipped++
		case types.StatusFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d extracted, %d skipped, %d failed (total: %d)\n",
		result.Extracted, result.Skipped, result.Failed, result.Total())
	return result
}

// CheckNames returns an error naming every pair of documents whose
// transcripts would be written to the same file.
func CheckNames(docs []types.Document) error {
	owner := make(map[string]string, len(docs))
	var clashes []string
	for _, doc := range docs {
		if first, ok := owner[doc.Name]; ok {
			clashes = append(clashes, fmt.Sprintf("%s and %s both write %s.txt", first, doc.Path, doc.Name))
			continue
		}
		owner[doc.Name] = doc.Path
	}
	if len(clashes) > 0 {
		return fmt.Errorf("transcript names collide: %s", strings.Join(clashes, "; "))
	}
	return nil
}

// NewRecord builds the journal record for a finished extraction.
func NewRecord(doc types.Document, backend types.ParserBackend, out pipeline.Outcome, start time.Time) types.RunRecord {
	rec := types.RunRecord{
		Document:  doc,
		Backend:   backend,
		Phase:     pipeline.Succeeded.String(),
		Chars:     len(out.Transcript),
		Duration:  time.Since(start),
		StartedAt: start.UTC(),
	}
	if !out.OK() {
		rec.Phase = pipeline.Failed.String()
		rec.ErrorKind = string(out.Err.Kind)
		rec.Detail = out.Err.Detail
		rec.Page = out.Err.Page
	}
	return rec
}

func record(ctx context.Context, opts Options, doc types.Document, out pipeline.Outcome, start time.Time, w io.Writer) {
	if opts.Recorder == nil {
		return
	}
	if err := opts.Recorder.Record(ctx, NewRecord(doc, opts.Backend, out, start)); err != nil {
		fmt.Fprintf(w, "warning:   %s not journaled: %v\n", doc.Name, err)
	}
}

// syncWriter serializes writes from concurrent extractions.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
