// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdftext/internal/pipeline"
	"github.com/pdiddy/pdftext/pkg/types"
)

// Output formats for a single extraction.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// report is the structured form of one extraction.
type report struct {
	Document   types.Document `json:"document" yaml:"document"`
	State      string         `json:"state" yaml:"state"`
	Transcript string         `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	Error      *errorReport   `json:"error,omitempty" yaml:"error,omitempty"`
}

type errorReport struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Page    int    `json:"page,omitempty" yaml:"page,omitempty"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func newReport(doc types.Document, out pipeline.Outcome) report {
	r := report{Document: doc, State: pipeline.Succeeded.String(), Transcript: out.Transcript}
	if !out.OK() {
		r.State = pipeline.Failed.String()
		r.Error = &errorReport{
			Kind:    string(out.Err.Kind),
			Message: out.Err.Kind.Message(),
			Page:    out.Err.Page,
			Detail:  out.Err.Detail,
		}
	}
	return r
}

// render writes out in the given format. Text output is the bare transcript
// and is empty on failure.
func render(w io.Writer, format string, doc types.Document, out pipeline.Outcome) error {
	switch format {
	case formatText, "":
		_, err := io.WriteString(w, out.Transcript)
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newReport(doc, out))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newReport(doc, out)); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q: use text, json, or yaml", format)
	}
}
