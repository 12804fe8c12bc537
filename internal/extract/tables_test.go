package extract

import (
	"reflect"
	"testing"

	"github.com/ledongthuc/pdf"
)

// hline returns a thin filled rectangle representing a horizontal ruling line.
func hline(x1, x2, y float64) Rect {
	return Rect{X1: x1, Y1: y - 0.4, X2: x2, Y2: y + 0.4}
}

// vline returns a thin filled rectangle representing a vertical ruling line.
func vline(x, y1, y2 float64) Rect {
	return Rect{X1: x - 0.4, Y1: y1, X2: x + 0.4, Y2: y2}
}

// word places a text item whose center is roughly at the given midpoint.
func word(s string, x, y float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: float64(len(s)) * 5, FontSize: 10}
}

// gridRects builds ruling lines for a table spanning [100,300]x[500,560]
// with column boundary at 200 and rows every 20 points.
func gridRects() []Rect {
	return []Rect{
		hline(100, 300, 560),
		hline(100, 300, 540),
		hline(100, 300, 520),
		hline(100, 300, 500),
		vline(100, 500, 560),
		vline(200, 500, 560),
		vline(300, 500, 560),
	}
}

func gridTexts() []pdf.Text {
	return []pdf.Text{
		word("Name", 110, 548),
		word("Age", 210, 548),
		word("Alice", 110, 528),
		word("30", 210, 528),
		word("Bob", 110, 508),
		word("25", 210, 508),
		word("Prose", 110, 700), // outside the table
	}
}

func TestDetectTablesGrid(t *testing.T) {
	tables := detectTables(1, gridRects(), gridTexts())
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}

	tbl := tables[0]
	if tbl.Page != 1 {
		t.Errorf("page = %d, want 1", tbl.Page)
	}
	want := [][]string{
		{"Name", "Age"},
		{"Alice", "30"},
		{"Bob", "25"},
	}
	if !reflect.DeepEqual(tbl.Grid, want) {
		t.Errorf("grid = %v, want %v", tbl.Grid, want)
	}
}

func TestDetectTablesBBoxCoversGrid(t *testing.T) {
	tables := detectTables(1, gridRects(), gridTexts())
	if len(tables) != 1 {
		t.Fatal("expected one table")
	}
	b := tables[0].BBox
	for _, txt := range gridTexts()[:6] {
		if !b.contains(txt.X+txt.W/2, txt.Y) {
			t.Errorf("bbox %+v does not contain cell text %q", b, txt.S)
		}
	}
	if b.contains(110, 700) {
		t.Error("bbox should not contain prose outside the table")
	}
}

func TestDetectTablesFromCellBoxes(t *testing.T) {
	// A 2x2 grid drawn as four stroked cell boxes.
	rects := []Rect{
		{X1: 100, Y1: 520, X2: 200, Y2: 540},
		{X1: 200, Y1: 520, X2: 300, Y2: 540},
		{X1: 100, Y1: 500, X2: 200, Y2: 520},
		{X1: 200, Y1: 500, X2: 300, Y2: 520},
	}
	texts := []pdf.Text{
		word("H1", 110, 528),
		word("H2", 210, 528),
		word("a", 110, 508),
		word("b", 210, 508),
	}
	tables := detectTables(3, rects, texts)
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}
	want := [][]string{{"H1", "H2"}, {"a", "b"}}
	if !reflect.DeepEqual(tables[0].Grid, want) {
		t.Errorf("grid = %v, want %v", tables[0].Grid, want)
	}
	if tables[0].Page != 3 {
		t.Errorf("page = %d, want 3", tables[0].Page)
	}
}

func TestDetectTablesIgnoresPlainBox(t *testing.T) {
	// A single ruled box around text is not a table: one row band, one column band.
	rects := []Rect{{X1: 100, Y1: 500, X2: 300, Y2: 540}}
	texts := []pdf.Text{word("boxed", 150, 520)}
	if tables := detectTables(1, rects, texts); len(tables) != 0 {
		t.Errorf("got %d tables, want 0", len(tables))
	}
}

func TestDetectTablesNoRects(t *testing.T) {
	if tables := detectTables(1, nil, gridTexts()); tables != nil {
		t.Errorf("got %v, want nil", tables)
	}
}

func TestDetectTablesTwoDisjointGrids(t *testing.T) {
	rects := gridRects()
	// Second grid far below the first.
	rects = append(rects,
		hline(100, 300, 260),
		hline(100, 300, 240),
		hline(100, 300, 220),
		vline(100, 220, 260),
		vline(200, 220, 260),
		vline(300, 220, 260),
	)
	texts := append(gridTexts(),
		word("K", 110, 248),
		word("V", 210, 248),
		word("k1", 110, 228),
		word("v1", 210, 228),
	)

	tables := detectTables(1, rects, texts)
	if len(tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(tables))
	}
	// Ordered top of page first.
	if tables[0].BBox.Y2 < tables[1].BBox.Y2 {
		t.Error("tables not ordered top-down")
	}
	want := [][]string{{"K", "V"}, {"k1", "v1"}}
	if !reflect.DeepEqual(tables[1].Grid, want) {
		t.Errorf("second grid = %v, want %v", tables[1].Grid, want)
	}
}

func TestSnapPositionsMergesNearbyBoundaries(t *testing.T) {
	got := snapPositions([]float64{100, 100.8, 200, 201.5, 300})
	want := []float64{100, 200, 300}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("snapPositions = %v, want %v", got, want)
	}
}

func TestRulingSegmentsClassification(t *testing.T) {
	segs := rulingSegments([]Rect{
		hline(0, 100, 50),              // horizontal line
		vline(10, 0, 100),              // vertical line
		{X1: 0, Y1: 0, X2: 50, Y2: 40}, // box: four edges
		{X1: 0, Y1: 0, X2: 1, Y2: 1},   // speck: ignored
	})
	var h, v int
	for _, s := range segs {
		if s.horizontal {
			h++
		} else {
			v++
		}
	}
	if h != 3 || v != 3 {
		t.Errorf("got %d horizontal / %d vertical segments, want 3/3", h, v)
	}
}
