// Package extract reads PDF documents for ingestion: page text extraction
// with rectangular redaction, and lattice (ruled-line) table detection.
// Both operate on the same document handle and the same 1-indexed page
// numbering, so table bounding boxes can be fed straight back in as
// redaction regions without any coordinate or page translation.
package extract

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// Document is an open PDF. It is owned by the ingestion call that opened it
// and must be closed on every exit path.
type Document struct {
	file   *os.File
	reader *pdf.Reader
}

// Open opens the PDF at path. The caller must Close the returned Document.
func Open(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	return &Document{file: f, reader: r}, nil
}

// Close releases the underlying file handle.
func (d *Document) Close() error {
	return d.file.Close()
}

// NumPages returns the page count. Pages are numbered 1..NumPages.
func (d *Document) NumPages() int {
	return d.reader.NumPage()
}

// content interprets one page, recovering from parser panics: the underlying
// library faults on some malformed content streams, and a single bad page
// must surface as an error for this document, not crash the batch.
func (d *Document) content(page int) (c pdf.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoding page %d: %v", page, r)
		}
	}()

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return pdf.Content{}, fmt.Errorf("page %d: missing page object", page)
	}
	return p.Content(), nil
}

// PageText extracts the text of the 1-indexed page, excluding everything
// inside the redact regions. The regions are rendered unreadable before
// assembly, so redacted areas contribute no characters to the output.
func (d *Document) PageText(page int, redact []Rect) (string, error) {
	c, err := d.content(page)
	if err != nil {
		return "", err
	}
	return assembleText(c.Text, redact), nil
}

// Tables runs lattice table detection over every page and returns all
// detected tables in page order, top of each page first.
func (d *Document) Tables() ([]Table, error) {
	var tables []Table
	for page := 1; page <= d.NumPages(); page++ {
		c, err := d.content(page)
		if err != nil {
			return nil, err
		}
		tables = append(tables, detectTables(page, drawnRects(c), c.Text)...)
	}
	return tables, nil
}

// drawnRects converts the page's drawn rectangles to extract geometry.
func drawnRects(c pdf.Content) []Rect {
	rects := make([]Rect, 0, len(c.Rect))
	for _, r := range c.Rect {
		rects = append(rects, Rect{
			X1: r.Min.X, Y1: r.Min.Y,
			X2: r.Max.X, Y2: r.Max.Y,
		}.normalize())
	}
	return rects
}
