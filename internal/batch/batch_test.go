// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdftext/internal/parser"
	"github.com/pdiddy/pdftext/internal/pipeline"
	"github.com/pdiddy/pdftext/pkg/types"
)

// lineParser treats each input line as one page with space-separated
// fragments. Input starting with "corrupt" is rejected.
type lineParser struct{}

func (lineParser) Open(_ context.Context, data []byte) (parser.Session, error) {
	if bytes.HasPrefix(data, []byte("corrupt")) {
		return nil, parser.ErrMalformed
	}
	var pages [][]string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		pages = append(pages, strings.Fields(line))
	}
	return lineSession(pages), nil
}

type lineSession [][]string

func (s lineSession) PageCount() int { return len(s) }
func (s lineSession) Close() error   { return nil }

func (s lineSession) Page(_ context.Context, index int) (parser.Page, error) {
	return linePage(s[index-1]), nil
}

type linePage []string

func (p linePage) Fragments(context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range p {
			if !yield(f, nil) {
				return
			}
		}
	}
}

type memRecorder struct {
	mu      sync.Mutex
	records []types.RunRecord
	err     error
}

func (m *memRecorder) Record(_ context.Context, rec types.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func writeInput(t *testing.T, dir, name, content string) types.Document {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return types.NewDocument(path)
}

func TestExtractFile(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		preCreate  bool
		force      bool
		wantStatus types.RunStatus
		wantLog    string
		wantText   string
	}{
		{
			name:       "successful extraction",
			content:    "Hello world\nSecond page",
			wantStatus: types.StatusExtracted,
			wantLog:    "extracted:",
			wantText:   "Hello world\nSecond page\n",
		},
		{
			name:       "skip existing transcript",
			content:    "Hello",
			preCreate:  true,
			wantStatus: types.StatusSkipped,
			wantLog:    "skipped:",
			wantText:   "existing",
		},
		{
			name:       "force overwrites existing transcript",
			content:    "Hello",
			preCreate:  true,
			force:      true,
			wantStatus: types.StatusExtracted,
			wantLog:    "extracted:",
			wantText:   "Hello\n",
		},
		{
			name:       "malformed document",
			content:    "corrupt bytes",
			wantStatus: types.StatusFailed,
			wantLog:    "malformed_document",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := t.TempDir(), t.TempDir()
			doc := writeInput(t, in, "report.pdf", tt.content)
			txtPath := filepath.Join(out, "report.txt")
			if tt.preCreate {
				require.NoError(t, os.WriteFile(txtPath, []byte("existing"), 0o644))
			}

			opts := Options{BatchConfig: types.BatchConfig{OutDir: out, Force: tt.force}}
			var log bytes.Buffer
			status := ExtractFile(context.Background(), pipeline.New(lineParser{}), doc, opts, &log)

			assert.Equal(t, tt.wantStatus, status)
			assert.Contains(t, log.String(), tt.wantLog)

			data, err := os.ReadFile(txtPath)
			if tt.wantText == "" {
				assert.True(t, os.IsNotExist(err), "no transcript is written on failure")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, string(data))
		})
	}
}

func TestExtractFile_MissingInput(t *testing.T) {
	doc := types.NewDocument(filepath.Join(t.TempDir(), "absent.pdf"))
	opts := Options{BatchConfig: types.BatchConfig{OutDir: t.TempDir()}}

	var log bytes.Buffer
	status := ExtractFile(context.Background(), pipeline.New(lineParser{}), doc, opts, &log)

	assert.Equal(t, types.StatusFailed, status)
	assert.Contains(t, log.String(), "absent")
}

func TestExtractFile_Records(t *testing.T) {
	in := t.TempDir()
	good := writeInput(t, in, "good.pdf", "a b")
	bad := writeInput(t, in, "bad.pdf", "corrupt")

	rec := &memRecorder{}
	opts := Options{
		BatchConfig: types.BatchConfig{OutDir: t.TempDir()},
		Backend:     types.BackendNative,
		Recorder:    rec,
	}
	ex := pipeline.New(lineParser{})
	ExtractFile(context.Background(), ex, good, opts, &bytes.Buffer{})
	ExtractFile(context.Background(), ex, bad, opts, &bytes.Buffer{})

	require.Len(t, rec.records, 2)

	ok := rec.records[0]
	assert.Equal(t, "good", ok.Document.Name)
	assert.Equal(t, "succeeded", ok.Phase)
	assert.Equal(t, len("a b\n"), ok.Chars)
	assert.Len(t, ok.Document.SHA256, 64)
	assert.Equal(t, int64(3), ok.Document.Size)
	assert.Equal(t, types.BackendNative, ok.Backend)

	failed := rec.records[1]
	assert.Equal(t, "failed", failed.Phase)
	assert.Equal(t, string(pipeline.MalformedDocument), failed.ErrorKind)
	assert.Zero(t, failed.Chars)
}

func TestExtractFile_RecorderErrorIsWarning(t *testing.T) {
	doc := writeInput(t, t.TempDir(), "x.pdf", "text")
	opts := Options{
		BatchConfig: types.BatchConfig{OutDir: t.TempDir()},
		Recorder:    &memRecorder{err: errors.New("database is locked")},
	}

	var log bytes.Buffer
	status := ExtractFile(context.Background(), pipeline.New(lineParser{}), doc, opts, &log)

	assert.Equal(t, types.StatusExtracted, status)
	assert.Contains(t, log.String(), "not journaled")
}

func TestExtractBatch(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()

	docs := []types.Document{
		writeInput(t, in, "a.pdf", "first doc"),
		writeInput(t, in, "b.pdf", "second doc"),
		writeInput(t, in, "c.pdf", "corrupt"),
		writeInput(t, in, "d.pdf", "fourth\ndoc"),
	}
	require.NoError(t, os.WriteFile(filepath.Join(out, "b.txt"), []byte("existing"), 0o644))

	opts := Options{BatchConfig: types.BatchConfig{OutDir: out, Concurrency: 2}}
	var log bytes.Buffer
	result := ExtractBatch(context.Background(), pipeline.New(lineParser{}), docs, opts, &log)

	assert.Equal(t, 2, result.Extracted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 4, result.Total())
	assert.True(t, result.HasFailures())
	assert.Contains(t, log.String(), "Batch summary:")

	data, err := os.ReadFile(filepath.Join(out, "d.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fourth\ndoc\n", string(data))
}

func TestReadDocument_Stdin(t *testing.T) {
	doc := types.NewDocument("-")
	data, err := ReadDocument(&doc, strings.NewReader("piped"))

	require.NoError(t, err)
	assert.Equal(t, "piped", string(data))
	assert.Equal(t, "stdin", doc.Name)
	assert.Equal(t, int64(5), doc.Size)
	assert.NotEmpty(t, doc.SHA256)
}

func TestExtractBatch_NameCollision(t *testing.T) {
	root, out := t.TempDir(), t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	docs := []types.Document{
		writeInput(t, filepath.Join(root, "a"), "report.pdf", "from a"),
		writeInput(t, filepath.Join(root, "b"), "report.pdf", "from b"),
	}

	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			dir := filepath.Join(out, fmt.Sprint(concurrency))
			opts := Options{BatchConfig: types.BatchConfig{OutDir: dir, Concurrency: concurrency}}

			var log bytes.Buffer
			result := ExtractBatch(context.Background(), pipeline.New(lineParser{}), docs, opts, &log)

			assert.Equal(t, 1, result.Extracted)
			assert.Zero(t, result.Skipped, "a collision is not an existing transcript")
			assert.Equal(t, 1, result.Failed)
			assert.True(t, result.HasFailures())
			assert.Contains(t, log.String(), "writes the same transcript as")

			data, err := os.ReadFile(filepath.Join(dir, "report.txt"))
			require.NoError(t, err)
			assert.Equal(t, "from a\n", string(data), "the first document owns the name")
		})
	}
}

func TestCheckNames(t *testing.T) {
	unique := []types.Document{types.NewDocument("a/one.pdf"), types.NewDocument("a/two.pdf")}
	assert.NoError(t, CheckNames(unique))

	clash := []types.Document{
		types.NewDocument("a/report.pdf"),
		types.NewDocument("b/report.pdf"),
		types.NewDocument("c/other.pdf"),
	}
	err := CheckNames(clash)
	require.Error(t, err)
	assert.ErrorContains(t, err, "a/report.pdf and b/report.pdf both write report.txt")
}
