// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parser

import (
	"bytes"
	"context"
	"iter"
	"strings"

	"github.com/pdiddy/pdftext/internal/container"
)

// pdftotextArgs run poppler's pdftotext as a filter: PDF on stdin, UTF-8
// text on stdout, pages terminated by form feeds.
var pdftotextArgs = []string{"pdftotext", "-enc", "UTF-8", "-", "-"}

// PdftotextParser converts documents by piping them through pdftotext in a
// container. The whole document is converted when the session opens.
type PdftotextParser struct {
	runtime container.Runtime
	image   string
}

// NewPdftotextParser returns a parser that runs image with rt. The caller
// is expected to have checked that the image exists.
func NewPdftotextParser(rt container.Runtime, image string) *PdftotextParser {
	return &PdftotextParser{runtime: rt, image: image}
}

func (p *PdftotextParser) Open(ctx context.Context, data []byte) (Session, error) {
	if len(data) == 0 {
		return nil, malformed("empty input")
	}

	var out bytes.Buffer
	if err := p.runtime.Run(ctx, p.image, pdftotextArgs, bytes.NewReader(data), &out); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, malformed("%v", err)
	}
	// Any real page ends in a form feed, so no output at all means the
	// tool failed without saying so.
	if out.Len() == 0 {
		return nil, malformed("pdftotext produced no output")
	}
	return &textSession{pages: splitPages(out.String())}, nil
}

// splitPages cuts pdftotext output into pages. Every page, including the
// last, is terminated by a form feed.
func splitPages(out string) [][]string {
	if out == "" {
		return nil
	}
	chunks := strings.Split(out, "\f")
	if strings.TrimSpace(chunks[len(chunks)-1]) == "" {
		chunks = chunks[:len(chunks)-1]
	}

	pages := make([][]string, len(chunks))
	for i, chunk := range chunks {
		for _, line := range strings.Split(chunk, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				pages[i] = append(pages[i], line)
			}
		}
	}
	return pages
}

// textSession serves pages that were already converted to lines.
type textSession struct {
	pages [][]string
}

func (s *textSession) PageCount() int { return len(s.pages) }

func (s *textSession) Page(_ context.Context, index int) (Page, error) {
	if index < 1 || index > len(s.pages) {
		return nil, pageFailed("out of range 1..%d", len(s.pages))
	}
	return linesPage(s.pages[index-1]), nil
}

func (s *textSession) Close() error {
	s.pages = nil
	return nil
}

type linesPage []string

func (p linesPage) Fragments(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, line := range p {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}
