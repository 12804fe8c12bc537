package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docquery/docquery/internal/extract"
)

// fakeSource is an in-memory Source keyed by page number.
type fakeSource struct {
	pages     map[int]string
	tables    []extract.Table
	tablesErr error
	pageErr   map[int]error
	gotRedact map[int][]extract.Rect
	closed    bool
}

func (f *fakeSource) NumPages() int {
	max := 0
	for p := range f.pages {
		if p > max {
			max = p
		}
	}
	return max
}

func (f *fakeSource) PageText(page int, redact []extract.Rect) (string, error) {
	if f.gotRedact == nil {
		f.gotRedact = make(map[int][]extract.Rect)
	}
	f.gotRedact[page] = redact
	if err := f.pageErr[page]; err != nil {
		return "", err
	}
	return f.pages[page], nil
}

func (f *fakeSource) Tables() ([]extract.Table, error) {
	return f.tables, f.tablesErr
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

// openerFor returns an Opener resolving base filenames to fake sources.
// Unlisted paths fail to open.
func openerFor(sources map[string]*fakeSource) Opener {
	return func(path string) (Source, error) {
		src, ok := sources[filepath.Base(path)]
		if !ok {
			return nil, errors.New("malformed pdf")
		}
		return src, nil
	}
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

// touch creates empty placeholder files so directory listing finds them.
func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDocumentTablesPrecedeProse(t *testing.T) {
	table := extract.Table{
		Page: 1,
		BBox: extract.Rect{X1: 10, Y1: 10, X2: 100, Y2: 100},
		Grid: [][]string{{"Name", "Age"}, {"Alice", "30"}},
	}
	src := &fakeSource{
		pages:  map[int]string{1: words(20)},
		tables: []extract.Table{table},
	}
	p := NewPipeline(openerFor(map[string]*fakeSource{"a.pdf": src}))

	records, err := p.Document("/docs/a.pdf")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if !strings.HasPrefix(records[0].TextChunk, "Page 1 contains the following table:") {
		t.Errorf("records[0] should be the table, got %q", records[0].TextChunk)
	}
	if records[1].TextChunk != words(20) {
		t.Errorf("records[1] should be the page prose, got %q", records[1].TextChunk)
	}
	for _, r := range records {
		if r.SourceFile != "a.pdf" {
			t.Errorf("source_file = %q, want a.pdf", r.SourceFile)
		}
	}

	redact := src.gotRedact[1]
	if len(redact) != 1 || redact[0] != table.BBox {
		t.Errorf("page 1 redact regions = %v, want the table bbox", redact)
	}
	if !src.closed {
		t.Error("document was not closed")
	}
}

func TestDocumentSubstanceFilter(t *testing.T) {
	cases := []struct {
		name  string
		words int
		want  int
	}{
		{"at threshold", 15, 0},
		{"above threshold", 16, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{pages: map[int]string{1: words(tc.words)}}
			p := NewPipeline(openerFor(map[string]*fakeSource{"a.pdf": src}))

			records, err := p.Document("a.pdf")
			if err != nil {
				t.Fatalf("Document: %v", err)
			}
			if len(records) != tc.want {
				t.Errorf("got %d records, want %d", len(records), tc.want)
			}
		})
	}
}

func TestDocumentPageErrorAbortsDocument(t *testing.T) {
	src := &fakeSource{
		pages:   map[int]string{1: words(20), 2: words(20)},
		pageErr: map[int]error{2: errors.New("bad content stream")},
	}
	p := NewPipeline(openerFor(map[string]*fakeSource{"a.pdf": src}))

	_, err := p.Document("a.pdf")
	var docErr *DocumentError
	if !errors.As(err, &docErr) {
		t.Fatalf("err = %v, want DocumentError", err)
	}
	if !src.closed {
		t.Error("document must be closed on the error path")
	}
}

func TestDocumentOpenFailure(t *testing.T) {
	p := NewPipeline(openerFor(nil))
	_, err := p.Document("missing.pdf")
	var docErr *DocumentError
	if !errors.As(err, &docErr) {
		t.Fatalf("err = %v, want DocumentError", err)
	}
}

func TestDocumentWithChunking(t *testing.T) {
	src := &fakeSource{pages: map[int]string{1: words(650)}}
	p := NewPipeline(openerFor(map[string]*fakeSource{"a.pdf": src}), WithChunking(300, 50))

	records, err := p.Document("a.pdf")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 chunks", len(records))
	}
	if !strings.HasPrefix(records[0].TextChunk, "w0 ") {
		t.Errorf("first chunk should start at the first word, got %q", records[0].TextChunk[:20])
	}
	if !strings.HasSuffix(records[2].TextChunk, " w649") {
		t.Errorf("last chunk should end at the last word")
	}
}

func TestDirectoryEndToEnd(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf", "b.pdf", "notes.txt")

	table := extract.Table{
		Page: 1,
		BBox: extract.Rect{X1: 10, Y1: 10, X2: 100, Y2: 100},
		Grid: [][]string{{"H1", "H2"}, {"c1", "c2"}},
	}
	sources := map[string]*fakeSource{
		"a.pdf": {
			pages:  map[int]string{1: words(20)},
			tables: []extract.Table{table},
		},
		"b.pdf": {
			pages: map[int]string{1: words(10)},
		},
	}
	p := NewPipeline(openerFor(sources))

	records := p.Directory(dir)

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (a's table + a's prose)", len(records))
	}
	if !strings.Contains(records[0].TextChunk, "| H1 | H2 |") {
		t.Errorf("records[0] should be a's table, got %q", records[0].TextChunk)
	}
	if records[1].TextChunk != words(20) {
		t.Errorf("records[1] should be a's prose")
	}
	for name, src := range sources {
		if !src.closed {
			t.Errorf("%s was not closed", name)
		}
	}
}

func TestDirectoryFailedDocumentIsSkipped(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "bad.pdf", "good.pdf")

	sources := map[string]*fakeSource{
		// bad.pdf absent: opener fails for it
		"good.pdf": {pages: map[int]string{1: words(20)}},
	}
	p := NewPipeline(openerFor(sources))

	records := p.Directory(dir)

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 from the surviving document", len(records))
	}
	if records[0].SourceFile != "good.pdf" {
		t.Errorf("source_file = %q", records[0].SourceFile)
	}
}

func TestDirectoryMissing(t *testing.T) {
	p := NewPipeline(openerFor(nil))
	if records := p.Directory("/nonexistent/path"); len(records) != 0 {
		t.Errorf("got %d records for a missing directory, want 0", len(records))
	}
}

func TestDirectoryExtensionMatchIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "UPPER.PDF")

	sources := map[string]*fakeSource{
		"UPPER.PDF": {pages: map[int]string{1: words(20)}},
	}
	p := NewPipeline(openerFor(sources))

	if records := p.Directory(dir); len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}
