// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ParserBackend identifies the document parser implementation.
type ParserBackend string

const (
	BackendNative    ParserBackend = "native"
	BackendPdftotext ParserBackend = "pdftotext"
)

// ParserConfig holds settings for the document parser boundary.
type ParserConfig struct {
	// Backend selects the parser: native (pure Go) or pdftotext (container).
	Backend ParserBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Strict runs structural validation before the document is opened.
	// Only the native backend honours it.
	Strict bool `json:"strict" yaml:"strict" mapstructure:"strict"`

	// Image is the container image used by the pdftotext backend.
	Image string `json:"image" yaml:"image" mapstructure:"image"`
}

// PipelineConfig holds settings for the extraction pipeline.
type PipelineConfig struct {
	// StepTimeout bounds each suspension point (session open, each page).
	// Zero disables the per-step deadline.
	StepTimeout time.Duration `json:"step_timeout" yaml:"step_timeout" mapstructure:"step_timeout"`
}

// BatchConfig holds settings for multi-document runs.
type BatchConfig struct {
	// OutDir receives one <name>.txt transcript per document.
	OutDir string `json:"out_dir" yaml:"out_dir" mapstructure:"out_dir"`

	// Concurrency is the number of documents extracted at once (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// Force re-extracts documents whose transcript already exists.
	Force bool `json:"force" yaml:"force" mapstructure:"force"`
}

// JournalConfig holds settings for the run journal.
type JournalConfig struct {
	// Enabled turns run recording on.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Dir is the directory holding journal.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	// Level is a zerolog level name (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings for the CLI.
type Config struct {
	Parser   ParserConfig   `json:"parser" yaml:"parser" mapstructure:"parser"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Batch    BatchConfig    `json:"batch" yaml:"batch" mapstructure:"batch"`
	Journal  JournalConfig  `json:"journal" yaml:"journal" mapstructure:"journal"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the settings used when neither a config file nor
// flags override them.
func DefaultConfig() Config {
	return Config{
		Parser: ParserConfig{
			Backend: BackendNative,
			Image:   "poppler:latest",
		},
		Batch: BatchConfig{
			OutDir:      "transcripts",
			Concurrency: 4,
		},
		Journal: JournalConfig{
			Dir: ".pdftext",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
