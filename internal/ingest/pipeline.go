// Package ingest turns PDF documents into vector store records: tables are
// rendered to markdown, table regions are redacted out of the page prose,
// and pages with too little remaining text are discarded.
package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docquery/docquery/internal/chunker"
	"github.com/docquery/docquery/internal/extract"
	"github.com/docquery/docquery/internal/store"
)

// Pages whose redacted prose has this many words or fewer carry too little
// signal and are usually extraction noise.
const substanceThreshold = 15

// Source is one open PDF document. *extract.Document satisfies it.
type Source interface {
	NumPages() int
	PageText(page int, redact []extract.Rect) (string, error)
	Tables() ([]extract.Table, error)
	Close() error
}

// Opener opens a document by path.
type Opener func(path string) (Source, error)

// OpenPDF is the production Opener.
func OpenPDF(path string) (Source, error) {
	d, err := extract.Open(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DocumentError reports a failure scoped to a single document. Sibling
// documents in a directory run are unaffected.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("ingesting %s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Pipeline converts documents into store records.
type Pipeline struct {
	open    Opener
	window  int
	overlap int
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunking passes page prose through the word chunker instead of
// emitting it as one record per page. Tables are never chunked.
func WithChunking(window, overlap int) Option {
	return func(p *Pipeline) {
		p.window = window
		p.overlap = overlap
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a Pipeline reading documents via open.
func NewPipeline(open Opener, opts ...Option) *Pipeline {
	p := &Pipeline{
		open:   open,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Document ingests a single PDF. Table records come first in detection
// order, then per-page prose with table regions redacted out. The document
// handle is closed on every path.
func (p *Pipeline) Document(path string) ([]store.Record, error) {
	src, err := p.open(path)
	if err != nil {
		return nil, &DocumentError{Path: path, Err: err}
	}
	defer src.Close()

	source := filepath.Base(path)

	tables, err := src.Tables()
	if err != nil {
		return nil, &DocumentError{Path: path, Err: err}
	}

	var records []store.Record
	redactByPage := make(map[int][]extract.Rect)
	for _, t := range tables {
		records = append(records, store.Record{
			TextChunk:  t.Markdown(),
			SourceFile: source,
		})
		redactByPage[t.Page] = append(redactByPage[t.Page], t.BBox)
	}

	for page := 1; page <= src.NumPages(); page++ {
		text, err := src.PageText(page, redactByPage[page])
		if err != nil {
			return nil, &DocumentError{Path: path, Err: fmt.Errorf("page %d: %w", page, err)}
		}
		if len(strings.Fields(text)) <= substanceThreshold {
			continue
		}

		if p.window > 0 {
			for _, c := range chunker.Chunk(text, p.window, p.overlap) {
				records = append(records, store.Record{TextChunk: c, SourceFile: source})
			}
		} else {
			records = append(records, store.Record{TextChunk: text, SourceFile: source})
		}
	}

	p.logger.Info("document ingested", "source", source, "tables", len(tables), "records", len(records))
	return records, nil
}

// Directory ingests every .pdf file in dir (case-insensitive extension,
// lexicographic filename order) and concatenates the results. A missing
// directory and per-document failures are logged, never fatal.
func (p *Pipeline) Directory(dir string) []store.Record {
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.logger.Warn("ingest directory unavailable", "dir", dir, "error", err)
		return nil
	}

	var records []store.Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		docRecords, err := p.Document(filepath.Join(dir, entry.Name()))
		if err != nil {
			p.logger.Warn("document skipped", "error", err)
			continue
		}
		records = append(records, docRecords...)
	}
	return records
}
