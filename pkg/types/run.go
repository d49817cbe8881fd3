// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunRecord describes one finished extraction for the run journal. It
// carries no transcript text.
type RunRecord struct {
	ID        string        `json:"id" yaml:"id"`
	Document  Document      `json:"document" yaml:"document"`
	Backend   ParserBackend `json:"backend" yaml:"backend"`
	Phase     string        `json:"phase" yaml:"phase"`
	ErrorKind string        `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Detail    string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Page      int           `json:"page,omitempty" yaml:"page,omitempty"`
	Chars     int           `json:"chars" yaml:"chars"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
}
