package extract

import (
	"fmt"
	"strings"
)

// Markdown renders the table as pipe-delimited markdown prefixed with its
// page reference. The first grid row is the header; remaining rows are data.
// The returned string is stored as a content record verbatim; tables are
// never word-chunked, since splitting would break their structure.
func (t Table) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Page %d contains the following table:\n\n", t.Page)

	if len(t.Grid) == 0 {
		return sb.String()
	}

	header := t.Grid[0]
	writeRow(&sb, header)

	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&sb, sep)

	for _, row := range t.Grid[1:] {
		writeRow(&sb, row)
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(sanitizeCell(c))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

// sanitizeCell collapses newlines to single spaces and escapes pipes so a
// cell cannot break the table layout.
func sanitizeCell(c string) string {
	c = strings.ReplaceAll(c, "\n", " ")
	c = strings.ReplaceAll(c, "|", "\\|")
	return strings.TrimSpace(c)
}
