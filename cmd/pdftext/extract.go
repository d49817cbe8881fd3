// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdftext/internal/batch"
	"github.com/pdiddy/pdftext/internal/container"
	"github.com/pdiddy/pdftext/internal/journal"
	"github.com/pdiddy/pdftext/internal/parser"
	"github.com/pdiddy/pdftext/internal/pipeline"
	"github.com/pdiddy/pdftext/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract the plain-text transcript of one or more PDFs",
	Long: `Extract reads a PDF and prints its transcript: one line per page,
fragments separated by single spaces. Use - to read the document from stdin.

With several files, each transcript is written to <out-dir>/<name>.txt and
documents are processed concurrently. Existing transcripts are skipped
unless --force is given.

On failure a short message naming the problem is printed to stderr and the
command exits non-zero.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.String("backend", "", "parser backend: native or pdftotext (default native)")
	f.Bool("strict", false, "validate the document structure before reading")
	f.String("image", "", "container image for the pdftotext backend")
	f.Duration("timeout", 0, "deadline for each extraction step (0 = none)")
	f.String("format", "text", "single-document output: text, json, or yaml")
	f.StringP("output", "o", "", "write the single-document output to this file")
	f.String("out-dir", "", "directory for batch transcripts (default transcripts)")
	f.Int("concurrency", 0, "documents extracted at once in batch mode (default 4)")
	f.Bool("force", false, "overwrite existing batch transcripts")
	f.Bool("journal", false, "record each run in the journal")

	for key, flag := range map[string]string{
		"parser.backend":        "backend",
		"parser.strict":         "strict",
		"parser.image":          "image",
		"pipeline.step_timeout": "timeout",
		"batch.out_dir":         "out-dir",
		"batch.concurrency":     "concurrency",
		"batch.force":           "force",
		"journal.enabled":       "journal",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ex, err := newExtractor(cfg)
	if err != nil {
		return err
	}

	rec, closeRec, err := openRecorder(cfg.Journal)
	if err != nil {
		return err
	}
	defer closeRec()

	ctx := cmd.Context()
	if len(args) == 1 {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		return extractOne(ctx, ex, args[0], cfg.Parser.Backend, rec, format, output, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	docs := make([]types.Document, 0, len(args))
	for _, arg := range args {
		if arg == "-" {
			return fmt.Errorf("stdin (-) can only be extracted on its own")
		}
		docs = append(docs, types.NewDocument(arg))
	}
	if err := batch.CheckNames(docs); err != nil {
		return err
	}

	opts := batch.Options{BatchConfig: cfg.Batch, Backend: cfg.Parser.Backend, Recorder: rec}
	result := batch.ExtractBatch(ctx, ex, docs, opts, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d document(s) failed extraction", result.Failed)
	}
	return nil
}

// newExtractor builds the parser backend named by cfg and wraps it in a
// pipeline. The container runtime is only detected for pdftotext.
func newExtractor(cfg types.Config) (*pipeline.Extractor, error) {
	var rt container.Runtime
	if cfg.Parser.Backend == types.BackendPdftotext {
		var err error
		if rt, err = container.DetectRuntime(); err != nil {
			return nil, err
		}
	}

	p, err := parser.New(cfg.Parser, rt)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("backend", string(cfg.Parser.Backend)).Dur("step_timeout", cfg.Pipeline.StepTimeout).
		Msg("extractor ready")

	return pipeline.New(p,
		pipeline.WithStepTimeout(cfg.Pipeline.StepTimeout),
		pipeline.WithLogger(logger),
	), nil
}

// openRecorder opens the journal when enabled. The returned close function
// is always safe to call.
func openRecorder(cfg types.JournalConfig) (batch.Recorder, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}
	j, err := journal.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return j, func() {
		if err := j.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing journal")
		}
	}, nil
}

// extractOne extracts a single document and writes its transcript, or a
// structured report, to stdout or the output file.
func extractOne(ctx context.Context, ex batch.Extractor, path string, backend types.ParserBackend,
	rec batch.Recorder, format, output string, stdin io.Reader, stdout, stderr io.Writer) error {

	doc := types.NewDocument(path)
	data, err := batch.ReadDocument(&doc, stdin)
	if err != nil {
		return err
	}

	start := time.Now()
	out := ex.Extract(ctx, data, logTransitions(logger, doc))

	if rec != nil {
		if err := rec.Record(ctx, batch.NewRecord(doc, backend, out, start)); err != nil {
			logger.Warn().Err(err).Str("document", doc.Name).Msg("run not journaled")
		}
	}

	w := stdout
	if output != "" && (out.OK() || format != formatText) {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	if err := render(w, format, doc, out); err != nil {
		return err
	}
	if !out.OK() {
		fmt.Fprintln(stderr, out.Err.Kind.Message())
		return out.Err
	}
	return nil
}
