package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	DefaultMaxPages = 50
	DefaultMaxChars = 50000

	pageSeparator = "\n\n"
)

// Result is the text pulled from a PDF along with its total page count.
type Result struct {
	Text      string
	PageCount int
}

// PDF extracts plain text from PDF documents.
type PDF struct {
	MaxPages int
	MaxChars int
}

// NewPDF returns an extractor with the default page and character caps.
func NewPDF() PDF {
	return PDF{MaxPages: DefaultMaxPages, MaxChars: DefaultMaxChars}
}

// Extract reads at most MaxPages pages, appending each non-empty page's text
// followed by a blank line, and truncates the result to MaxChars characters.
// PageCount is the document's total page count even when pages are skipped.
// A document that cannot be parsed returns an error and a zero Result.
func (e PDF) Extract(ctx context.Context, data []byte) (res Result, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(data) == 0 {
		return Result{}, errors.New("empty pdf data")
	}
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	limit := total
	if e.MaxPages > 0 && limit > e.MaxPages {
		limit = e.MaxPages
	}

	var buf strings.Builder
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		buf.WriteString(text)
		buf.WriteString(pageSeparator)
	}

	return Result{Text: truncate(buf.String(), e.MaxChars), PageCount: total}, nil
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i]
		}
		n++
	}
	return s
}
