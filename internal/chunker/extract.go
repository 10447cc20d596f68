package chunker

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"chapterqa/internal/domain"
)

// PDFExtractor extracts plain text per page from PDF bytes.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// Pages returns one entry per page in page order. Pages whose text cannot
// be decoded come back empty; a stream that is not a PDF is an error.
func (e *PDFExtractor) Pages(data []byte) (pages []string, err error) {
	// the parser panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: pdf parser: %v", domain.ErrUnreadableDocument, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}
	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// TextExtractor treats the bytes as UTF-8 text with form feeds separating pages.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (e *TextExtractor) Pages(data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", domain.ErrUnreadableDocument)
	}
	return strings.Split(string(data), "\f"), nil
}
