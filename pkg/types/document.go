// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// RunStatus indicates what happened to one document in a CLI run.
type RunStatus string

const (
	StatusExtracted RunStatus = "extracted"
	StatusSkipped   RunStatus = "skipped"
	StatusFailed    RunStatus = "failed"
)

// Document identifies one input file. The bytes themselves are never held
// here; they belong to the invocation that reads them.
type Document struct {
	// Name is the file name without extension (e.g. "report-2024").
	// For stdin it is "stdin".
	Name string `json:"name" yaml:"name"`

	// Path is the filesystem path, or "-" for stdin.
	Path string `json:"path" yaml:"path"`

	// Size is the byte length of the content, set once it has been read.
	Size int64 `json:"size" yaml:"size"`

	// SHA256 is the hex digest of the content, set once it has been read.
	SHA256 string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
}

// NewDocument builds a Document from a path. The name is derived from the
// file's base name.
func NewDocument(path string) Document {
	if path == "-" {
		return Document{Name: "stdin", Path: path}
	}
	base := filepath.Base(path)
	return Document{
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Path: path,
	}
}

// Fingerprint records the size and digest of the document content.
func (d *Document) Fingerprint(data []byte) {
	sum := sha256.Sum256(data)
	d.Size = int64(len(data))
	d.SHA256 = hex.EncodeToString(sum[:])
}
