// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pdftext/internal/pipeline"
	"github.com/pdiddy/pdftext/pkg/types"
)

// newLogger builds the CLI logger. Format "json" writes one JSON object per
// line; anything else writes human-readable console output.
func newLogger(cfg types.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// logTransitions returns an observer that logs every state the invocation
// enters.
func logTransitions(log zerolog.Logger, doc types.Document) pipeline.Observer {
	return func(s pipeline.State) {
		switch s.Phase {
		case pipeline.Failed:
			log.Debug().Str("document", doc.Name).Str("kind", string(s.Err.Kind)).
				Int("page", s.Err.Page).Msg("extraction failed")
		case pipeline.Succeeded:
			log.Debug().Str("document", doc.Name).Int("chars", len(s.Transcript)).Msg("extraction succeeded")
		default:
			log.Debug().Str("document", doc.Name).Stringer("phase", s.Phase).Msg("extraction state")
		}
	}
}
