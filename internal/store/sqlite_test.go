package store

import (
	"context"
	"errors"
	"testing"
)

// vecEmbedder returns a fixed vector per text, so similarity ordering in
// tests is fully deterministic.
type vecEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (e *vecEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		return []float32{0, 0, 1}, nil
	}
	return v, nil
}

func newTestSQLite(t *testing.T, embedder Embedder) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:", embedder)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteInsertAndSearch(t *testing.T) {
	emb := &vecEmbedder{vectors: map[string][]float32{
		"cats are mammals":   {1, 0, 0},
		"dogs are mammals":   {0.9, 0.1, 0},
		"planes are metal":   {0, 1, 0},
		"tell me about cats": {1, 0.05, 0},
	}}
	s := newTestSQLite(t, emb)

	records := []Record{
		{TextChunk: "cats are mammals", SourceFile: "animals.pdf"},
		{TextChunk: "dogs are mammals", SourceFile: "animals.pdf"},
		{TextChunk: "planes are metal", SourceFile: "machines.pdf"},
	}
	if err := s.Insert(context.Background(), records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.SearchNearest(context.Background(), "tell me about cats", 2)
	if err != nil {
		t.Fatalf("SearchNearest: %v", err)
	}
	want := []string{"cats are mammals", "dogs are mammals"}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSQLiteSearchLimitExceedsRows(t *testing.T) {
	emb := &vecEmbedder{vectors: map[string][]float32{"only chunk": {1, 0, 0}}}
	s := newTestSQLite(t, emb)

	if err := s.Insert(context.Background(), []Record{{TextChunk: "only chunk", SourceFile: "a.pdf"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.SearchNearest(context.Background(), "anything", 10)
	if err != nil {
		t.Fatalf("SearchNearest: %v", err)
	}
	if len(got) != 1 || got[0] != "only chunk" {
		t.Errorf("got %v", got)
	}
}

func TestSQLiteSearchEmptyStore(t *testing.T) {
	s := newTestSQLite(t, &vecEmbedder{})
	got, err := s.SearchNearest(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("empty store must not be an error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestSQLiteSearchEmbedderFailure(t *testing.T) {
	s := newTestSQLite(t, &vecEmbedder{err: errors.New("model not loaded")})
	_, err := s.SearchNearest(context.Background(), "anything", 5)
	if !errors.Is(err, ErrQuery) {
		t.Errorf("expected ErrQuery, got %v", err)
	}
}

func TestSQLiteInsertEmbedderFailure(t *testing.T) {
	s := newTestSQLite(t, &vecEmbedder{err: errors.New("model not loaded")})
	err := s.Insert(context.Background(), []Record{{TextChunk: "x", SourceFile: "a.pdf"}})
	if !errors.Is(err, ErrInsert) {
		t.Errorf("expected ErrInsert, got %v", err)
	}

	// A failed batch must leave nothing behind.
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		t.Fatalf("counting records: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after failed insert, want 0", count)
	}
}

func TestSQLiteDeleteBySource(t *testing.T) {
	emb := &vecEmbedder{vectors: map[string][]float32{}}
	s := newTestSQLite(t, emb)

	records := []Record{
		{TextChunk: "a1", SourceFile: "a.pdf"},
		{TextChunk: "a2", SourceFile: "a.pdf"},
		{TextChunk: "b1", SourceFile: "b.pdf"},
	}
	if err := s.Insert(context.Background(), records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	res, err := s.DeleteBySource(context.Background(), "a.pdf")
	if err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if res.Matched != 2 || res.Succeeded != 2 || res.Failed != 0 {
		t.Errorf("res = %+v", res)
	}

	// Deleting an unknown source is not an error.
	res, err = s.DeleteBySource(context.Background(), "missing.pdf")
	if err != nil {
		t.Fatalf("DeleteBySource on missing source: %v", err)
	}
	if res.Matched != 0 {
		t.Errorf("matched = %d, want 0", res.Matched)
	}
}

func TestSQLiteEnsureCollectionFresh(t *testing.T) {
	s := newTestSQLite(t, &vecEmbedder{})

	if err := s.Insert(context.Background(), []Record{{TextChunk: "x", SourceFile: "a.pdf"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.EnsureCollection(context.Background(), true); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	got, err := s.SearchNearest(context.Background(), "x", 5)
	if err != nil {
		t.Fatalf("SearchNearest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v after fresh ensure, want empty", got)
	}
}

func TestSQLiteMigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t, &vecEmbedder{})
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
