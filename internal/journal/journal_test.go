// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdftext/pkg/types"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(types.JournalConfig{Enabled: true, Dir: filepath.Join(t.TempDir(), "journal")})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleRun(name, phase string, started time.Time) types.RunRecord {
	rec := types.RunRecord{
		Document:  types.Document{Name: name, Path: name + ".pdf", Size: 1024, SHA256: "sha-" + name},
		Backend:   types.BackendNative,
		Phase:     phase,
		Chars:     512,
		Duration:  1500 * time.Millisecond,
		StartedAt: started,
	}
	if phase == "failed" {
		rec.ErrorKind = "page_read_error"
		rec.Detail = "page 3: bad content stream"
		rec.Page = 3
		rec.Chars = 0
	}
	return rec
}

func TestRecordAndRecent(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, sampleRun("first", "succeeded", base)))
	require.NoError(t, j.Record(ctx, sampleRun("second", "failed", base.Add(time.Minute))))
	require.NoError(t, j.Record(ctx, sampleRun("third", "succeeded", base.Add(2*time.Minute))))

	runs, err := j.Recent(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "third", runs[0].Document.Name, "newest first")
	assert.Equal(t, "first", runs[2].Document.Name)

	failed := runs[1]
	assert.Equal(t, "failed", failed.Phase)
	assert.Equal(t, "page_read_error", failed.ErrorKind)
	assert.Equal(t, 3, failed.Page)
	assert.Equal(t, 1500*time.Millisecond, failed.Duration)
	assert.Equal(t, types.BackendNative, failed.Backend)
	assert.True(t, failed.StartedAt.Equal(base.Add(time.Minute)))
	assert.NotEmpty(t, failed.ID, "IDs are generated")
}

func TestRecent_Filters(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c", "d"} {
		phase := "succeeded"
		if i%2 == 1 {
			phase = "failed"
		}
		require.NoError(t, j.Record(ctx, sampleRun(name, phase, base.Add(time.Duration(i)*time.Second))))
	}

	tests := []struct {
		name  string
		opts  QueryOptions
		names []string
	}{
		{name: "limit", opts: QueryOptions{Limit: 2}, names: []string{"d", "c"}},
		{name: "phase", opts: QueryOptions{Phase: "failed"}, names: []string{"d", "b"}},
		{name: "digest", opts: QueryOptions{SHA256: "sha-c"}, names: []string{"c"}},
		{name: "no match", opts: QueryOptions{SHA256: "sha-z"}, names: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := j.Recent(ctx, tt.opts)
			require.NoError(t, err)
			var names []string
			for _, r := range runs {
				names = append(names, r.Document.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestRecord_KeepsGivenID(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	rec := sampleRun("x", "succeeded", time.Now())
	rec.ID = "fixed-id"
	require.NoError(t, j.Record(ctx, rec))
	assert.Error(t, j.Record(ctx, rec), "IDs are unique")

	runs, err := j.Recent(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fixed-id", runs[0].ID)
}

func TestOpen_Reopens(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	ctx := context.Background()

	j, err := Open(types.JournalConfig{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, sampleRun("kept", "succeeded", time.Now())))
	require.NoError(t, j.Close())

	j, err = Open(types.JournalConfig{Dir: dir})
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Recent(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "kept", runs[0].Document.Name)
}

func TestExport(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()
	require.NoError(t, j.Record(ctx, sampleRun("doc", "failed", time.Now())))

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, j.Export(ctx, &buf, FormatYAML, QueryOptions{}))

		var runs []types.RunRecord
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "page_read_error", runs[0].ErrorKind)
		assert.Contains(t, buf.String(), "error_kind: page_read_error")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, j.Export(ctx, &buf, FormatJSON, QueryOptions{}))

		var runs []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "doc", runs[0]["document"].(map[string]any)["name"])
	})

	t.Run("unknown format", func(t *testing.T) {
		err := j.Export(ctx, &bytes.Buffer{}, "csv", QueryOptions{})
		assert.ErrorContains(t, err, "unknown export format")
	})

	t.Run("empty list", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, FormatJSON, nil))
		assert.Equal(t, "[]\n", buf.String())
	})
}
