// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdftext/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export writes the runs matching opts to w as YAML or JSON.
func (j *Journal) Export(ctx context.Context, w io.Writer, format string, opts QueryOptions) error {
	runs, err := j.Recent(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	return Encode(w, format, runs)
}

// Encode writes runs to w. An empty result encodes as an empty list.
func Encode(w io.Writer, format string, runs []types.RunRecord) error {
	if runs == nil {
		runs = []types.RunRecord{}
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(runs); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	default:
		return fmt.Errorf("unknown export format %q (want %s or %s)", format, FormatYAML, FormatJSON)
	}
}
