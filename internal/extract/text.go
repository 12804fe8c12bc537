package extract

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Text assembly tolerances, in PDF points.
const (
	lineTol  = 3.0 // items whose baselines differ by no more than this share a line
	minSpace = 1.0 // floor for the inter-word gap threshold
)

// assembleText rebuilds readable page text from positioned text items,
// dropping every item whose center falls inside a redaction region. Items
// are grouped into lines top-to-bottom and joined left-to-right, with a
// space inserted wherever the horizontal gap between items exceeds a
// font-size-relative threshold. Output keeps line breaks and a trailing
// newline; no trimming.
func assembleText(items []pdf.Text, redact []Rect) string {
	kept := items[:0:0]
	for _, t := range items {
		if redacted(t, redact) {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) == 0 {
		return ""
	}

	lines := groupLines(kept)

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(joinItems(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// redacted reports whether the item's center point lies inside any region.
func redacted(t pdf.Text, regions []Rect) bool {
	cx := t.X + t.W/2
	for _, r := range regions {
		if r.normalize().contains(cx, t.Y) {
			return true
		}
	}
	return false
}

// groupLines splits items into lines by baseline Y, ordered top of page
// first.
func groupLines(items []pdf.Text) [][]pdf.Text {
	sorted := make([]pdf.Text, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines [][]pdf.Text
	for _, t := range sorted {
		if n := len(lines); n > 0 {
			last := lines[n-1]
			if last[0].Y-t.Y <= lineTol {
				lines[n-1] = append(last, t)
				continue
			}
		}
		lines = append(lines, []pdf.Text{t})
	}
	return lines
}

// joinItems concatenates text items in reading order, inserting spaces at
// word gaps. Items may be per-glyph or per-run depending on how the PDF was
// produced; the gap heuristic handles both. Any newlines carried inside an
// item collapse to single spaces.
func joinItems(items []pdf.Text) string {
	if len(items) == 0 {
		return ""
	}
	sorted := make([]pdf.Text, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		dy := sorted[i].Y - sorted[j].Y
		if dy > lineTol {
			return true
		}
		if dy < -lineTol {
			return false
		}
		return sorted[i].X < sorted[j].X
	})

	var sb strings.Builder
	for i, t := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			gap := t.X - (prev.X + prev.W)
			if prev.Y-t.Y > lineTol || gap > spaceThreshold(t.FontSize) {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(strings.ReplaceAll(t.S, "\n", " "))
	}
	return sb.String()
}

func spaceThreshold(fontSize float64) float64 {
	th := fontSize * 0.3
	if th < minSpace {
		th = minSpace
	}
	return th
}
