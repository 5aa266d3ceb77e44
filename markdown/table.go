// ABOUTME: Pipe-table parser: splits header and row cells, skipping separator lines.
// ABOUTME: Only the empty boundary cells produced by leading/trailing pipes are dropped.

package markdown

import (
	"regexp"
	"strings"
)

var separatorLine = regexp.MustCompile(`^[\s|:-]+$`)

// ParseTable builds a Table from consecutive pipe-delimited lines. It reports
// false for fewer than two lines. The first line is the header; separator
// lines (only '-', '|', ':' and whitespace) are skipped wherever they appear.
// A header followed only by its separator is a table with no rows.
func ParseTable(lines []string) (Table, bool) {
	if len(lines) < 2 {
		return Table{}, false
	}
	t := Table{Headers: SplitRow(lines[0])}
	for _, line := range lines[1:] {
		if separatorLine.MatchString(line) {
			continue
		}
		t.Rows = append(t.Rows, SplitRow(line))
	}
	return t, true
}

// SplitRow splits one table line on '|' and trims every cell. Empty cells in
// the interior are kept so columns stay aligned.
func SplitRow(line string) []string {
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	if len(cells) > 0 && cells[0] == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
