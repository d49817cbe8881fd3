// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parser

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/ledongthuc/pdf"
)

// NativeParser reads the PDF text layer in-process with ledongthuc/pdf.
// Scanned (image-only) pages yield no fragments.
type NativeParser struct {
	strict bool
}

// NewNativeParser returns the pure-Go backend. With strict set, documents
// are structurally validated before they are opened.
func NewNativeParser(strict bool) *NativeParser {
	return &NativeParser{strict: strict}
}

// Open parses data. The library panics on some corrupt inputs; those
// panics are reported as ErrMalformed.
func (p *NativeParser) Open(ctx context.Context, data []byte) (s Session, err error) {
	if len(data) == 0 {
		return nil, malformed("empty input")
	}
	if p.strict {
		if err := Validate(data); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			s, err = nil, malformed("%v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, malformed("%v", err)
	}
	return &nativeSession{reader: r, pages: r.NumPage()}, nil
}

type nativeSession struct {
	reader *pdf.Reader
	pages  int
}

func (s *nativeSession) PageCount() int { return s.pages }

func (s *nativeSession) Page(ctx context.Context, index int) (pg Page, err error) {
	if index < 1 || index > s.pages {
		return nil, pageFailed("out of range 1..%d", s.pages)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			pg, err = nil, pageFailed("%v", r)
		}
	}()

	page := s.reader.Page(index)
	if page.V.IsNull() {
		return nil, pageFailed("missing page object")
	}
	return &nativePage{page: page}, nil
}

// Close drops the reader. The bytes are held in memory, so there is no
// file handle to release.
func (s *nativeSession) Close() error {
	s.reader = nil
	return nil
}

type nativePage struct {
	page pdf.Page
}

// Fragments yields one fragment per text row, in the order the library
// groups them. Blank rows are skipped. Within a row, runs separated by a
// visible gap but no literal space (kerned word spacing) get one space.
func (p *nativePage) Fragments(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		rows, err := p.rows()
		if err != nil {
			yield("", err)
			return
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			text := rowText(row)
			if strings.TrimSpace(text) == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

func (p *nativePage) rows() (rows pdf.Rows, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, pageFailed("%v", r)
		}
	}()
	rows, err = p.page.GetTextByRow()
	if err != nil {
		return nil, pageFailed("%v", err)
	}
	return rows, nil
}

// wordGap is the horizontal gap, as a fraction of the font size, above
// which two runs on a row are taken to be separate words.
const wordGap = 0.15

func rowText(row *pdf.Row) string {
	var b strings.Builder
	for i, t := range row.Content {
		if i > 0 && needsSpace(row.Content[i-1], t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
	}
	return b.String()
}

func needsSpace(prev, next pdf.Text) bool {
	if prev.W <= 0 || prev.FontSize <= 0 {
		return false
	}
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(next.S, " ") {
		return false
	}
	return next.X-(prev.X+prev.W) > wordGap*prev.FontSize
}

// String names the backend in logs.
func (p *NativeParser) String() string {
	return fmt.Sprintf("native(strict=%t)", p.strict)
}
