package extract

import (
	"sort"

	"github.com/ledongthuc/pdf"
)

// Table is a lattice-detected table on one page: its 1-indexed page number,
// bounding box in page coordinates, and normalized cell grid (rows of cells,
// top row first). Tables are transient ingestion-time values; the bounding
// box doubles as the redaction region for the page's prose extraction.
type Table struct {
	Page int
	BBox Rect
	Grid [][]string
}

// Lattice detection tolerances, in PDF points. Ruling lines are recovered
// from drawn rectangles: writers emit cell borders either as thin filled
// rectangles (one per line) or as stroked cell/table boxes (four edges each).
// Tables without ruled borders are not detected; that is the documented
// limitation of the lattice strategy, not a defect to paper over.
const (
	ruleThickness = 2.0 // max thickness for a rect to count as a single ruling line
	minRuleLen    = 8.0 // min length for a ruling line
	snapTol       = 2.0 // coordinates closer than this merge into one boundary
	clusterPad    = 3.0 // segments within this distance join one table candidate
)

// segment is a single horizontal or vertical ruling line.
type segment struct {
	bbox       Rect
	horizontal bool
}

// position returns the segment's fixed coordinate: Y for horizontal
// segments, X for vertical ones.
func (s segment) position() float64 {
	if s.horizontal {
		return (s.bbox.Y1 + s.bbox.Y2) / 2
	}
	return (s.bbox.X1 + s.bbox.X2) / 2
}

// rulingSegments converts drawn rectangles into ruling segments.
func rulingSegments(rects []Rect) []segment {
	var segs []segment
	for _, r := range rects {
		r = r.normalize()
		w, h := r.width(), r.height()
		switch {
		case h <= ruleThickness && w >= minRuleLen:
			segs = append(segs, segment{bbox: r, horizontal: true})
		case w <= ruleThickness && h >= minRuleLen:
			segs = append(segs, segment{bbox: r, horizontal: false})
		case w >= minRuleLen && h >= minRuleLen:
			// A stroked box contributes its four edges.
			segs = append(segs,
				segment{bbox: Rect{r.X1, r.Y2, r.X2, r.Y2}, horizontal: true},
				segment{bbox: Rect{r.X1, r.Y1, r.X2, r.Y1}, horizontal: true},
				segment{bbox: Rect{r.X1, r.Y1, r.X1, r.Y2}, horizontal: false},
				segment{bbox: Rect{r.X2, r.Y1, r.X2, r.Y2}, horizontal: false},
			)
		}
	}
	return segs
}

// clusterSegments groups segments whose padded bounding boxes touch into
// table candidates, using union-find over segment indices.
func clusterSegments(segs []segment) [][]segment {
	parent := make([]int, len(segs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			if segs[i].bbox.expand(clusterPad).intersects(segs[j].bbox.expand(clusterPad)) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]segment)
	for i, s := range segs {
		root := find(i)
		groups[root] = append(groups[root], s)
	}

	// Deterministic order: clusters sorted by root index.
	roots := make([]int, 0, len(groups))
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Ints(roots)

	clusters := make([][]segment, 0, len(groups))
	for _, r := range roots {
		clusters = append(clusters, groups[r])
	}
	return clusters
}

// snapPositions sorts values and merges runs closer than snapTol into one
// representative boundary coordinate.
func snapPositions(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sort.Float64s(values)
	snapped := []float64{values[0]}
	for _, v := range values[1:] {
		if v-snapped[len(snapped)-1] > snapTol {
			snapped = append(snapped, v)
		}
	}
	return snapped
}

// tableFromCluster builds a Table from one segment cluster, or returns false
// when the cluster does not form a usable grid. A grid needs at least two
// row bands and two column bands; anything smaller is a ruled text box, not
// a table.
func tableFromCluster(page int, cluster []segment, texts []pdf.Text) (Table, bool) {
	var xs, ys []float64
	bbox := cluster[0].bbox
	for _, s := range cluster {
		bbox = bbox.union(s.bbox)
		if s.horizontal {
			ys = append(ys, s.position())
		} else {
			xs = append(xs, s.position())
		}
	}

	cols := snapPositions(xs)
	rows := snapPositions(ys)
	if len(cols) < 3 || len(rows) < 3 {
		return Table{}, false
	}

	nRows := len(rows) - 1
	nCols := len(cols) - 1
	grid := make([][]string, nRows)
	cellWords := make([][][]pdf.Text, nRows)
	for i := range grid {
		grid[i] = make([]string, nCols)
		cellWords[i] = make([][]pdf.Text, nCols)
	}

	// rows is ascending in Y; row 0 of the grid is the topmost band.
	for _, t := range texts {
		cx := t.X + t.W/2
		cy := t.Y
		if !bbox.contains(cx, cy) {
			continue
		}
		col := bandIndex(cols, cx)
		band := bandIndex(rows, cy)
		if col < 0 || band < 0 {
			continue
		}
		row := nRows - 1 - band
		cellWords[row][col] = append(cellWords[row][col], t)
	}

	for i := range cellWords {
		for j := range cellWords[i] {
			grid[i][j] = joinItems(cellWords[i][j])
		}
	}

	return Table{Page: page, BBox: bbox, Grid: grid}, true
}

// bandIndex returns which band of consecutive boundaries v falls into,
// or -1 when v is outside all bands.
func bandIndex(boundaries []float64, v float64) int {
	for i := 0; i < len(boundaries)-1; i++ {
		if v >= boundaries[i] && v < boundaries[i+1] {
			return i
		}
	}
	return -1
}

// detectTables runs lattice detection over one page's drawn rectangles and
// text items. Returned tables are ordered top of page first.
func detectTables(page int, rects []Rect, texts []pdf.Text) []Table {
	segs := rulingSegments(rects)
	if len(segs) == 0 {
		return nil
	}

	var tables []Table
	for _, cluster := range clusterSegments(segs) {
		if t, ok := tableFromCluster(page, cluster, texts); ok {
			tables = append(tables, t)
		}
	}

	sort.SliceStable(tables, func(i, j int) bool {
		if tables[i].BBox.Y2 != tables[j].BBox.Y2 {
			return tables[i].BBox.Y2 > tables[j].BBox.Y2
		}
		return tables[i].BBox.X1 < tables[j].BBox.X1
	})
	return tables
}
