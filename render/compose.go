// ABOUTME: Card composer: groups level-2 heading sections into stats or analysis cards.
// ABOUTME: Everything outside a section run passes through as a plain block unit.

package render

import (
	"regexp"

	"github.com/2389-research/cardstream/markdown"
)

// statPattern is unanchored: any digit or dot marks a cell as numeric.
var statPattern = regexp.MustCompile(`[\d.]+%?`)

// palette colours stat values by row index.
var palette = [...]string{"red", "red", "green", "blue"}

// Unit is one composed render unit: a BlockUnit, a StatsCard or an AnalysisCard.
type Unit interface {
	unit()
}

// BlockUnit passes a block through unchanged.
type BlockUnit struct {
	Block markdown.Block
}

// Section is a level-2 heading with the blocks that follow it, up to the next
// level-1 or level-2 heading.
type Section struct {
	Icon  string
	Title string
	Body  []markdown.Block
}

// Stat is one value/label pair shown in a stats grid.
type Stat struct {
	Value string
	Label string
	Color string
}

// StatsCard renders a single section whose first table qualifies as stats.
// Body holds the section's non-table blocks.
type StatsCard struct {
	Icon  string
	Title string
	Stats []Stat
	Body  []markdown.Block
}

// AnalysisCard wraps every section of a run that is not a stats card.
type AnalysisCard struct {
	Sections []Section
}

func (BlockUnit) unit()    {}
func (StatsCard) unit()    {}
func (AnalysisCard) unit() {}

// Compose scans a flat block sequence and replaces each run of level-2
// sections with one card. A run ends at a level-1 heading or the end of input.
func Compose(blocks []markdown.Block) []Unit {
	units := make([]Unit, 0, len(blocks))
	for i := 0; i < len(blocks); {
		if !isHeading(blocks[i], 2) {
			units = append(units, BlockUnit{Block: blocks[i]})
			i++
			continue
		}
		var sections []Section
		sections, i = collectSections(blocks, i)
		units = append(units, cardFor(sections))
	}
	return units
}

func isHeading(b markdown.Block, level int) bool {
	h, ok := b.(markdown.Heading)
	return ok && h.Level == level
}

func collectSections(blocks []markdown.Block, i int) ([]Section, int) {
	var sections []Section
	for i < len(blocks) && isHeading(blocks[i], 2) {
		icon, title := SplitIcon(blocks[i].(markdown.Heading).Text)
		s := Section{Icon: icon, Title: title}
		for i++; i < len(blocks) && !isHeading(blocks[i], 1) && !isHeading(blocks[i], 2); i++ {
			s.Body = append(s.Body, blocks[i])
		}
		sections = append(sections, s)
	}
	return sections, i
}

func cardFor(sections []Section) Unit {
	if len(sections) == 1 {
		if table, ok := firstTable(sections[0].Body); ok && IsStatsTable(table) {
			return statsCard(sections[0], table)
		}
	}
	return AnalysisCard{Sections: sections}
}

func firstTable(body []markdown.Block) (markdown.Table, bool) {
	for _, b := range body {
		if t, ok := b.(markdown.Table); ok {
			return t, true
		}
	}
	return markdown.Table{}, false
}

// IsStatsTable reports whether a table has two columns (by header count or
// first-row length) and at least one row with a numeric-looking cell in either
// of its first two positions. Two-column text tables containing a stray digit
// also qualify.
func IsStatsTable(t markdown.Table) bool {
	if t.Columns() != 2 {
		return false
	}
	for _, row := range t.Rows {
		if statPattern.MatchString(cell(row, 0)) || statPattern.MatchString(cell(row, 1)) {
			return true
		}
	}
	return false
}

// Stats extracts value/label pairs from a stats table. The numeric cell of
// each row is the value; the label falls back to the second header when the
// row has no label cell.
func Stats(t markdown.Table) []Stat {
	stats := make([]Stat, 0, len(t.Rows))
	for i, row := range t.Rows {
		var s Stat
		if statPattern.MatchString(cell(row, 0)) {
			s.Value = cell(row, 0)
			s.Label = cell(row, 1)
			if s.Label == "" {
				s.Label = cell(t.Headers, 1)
			}
		} else {
			s.Label = cell(row, 0)
			s.Value = cell(row, 1)
		}
		s.Color = palette[i%len(palette)]
		stats = append(stats, s)
	}
	return stats
}

func statsCard(s Section, table markdown.Table) StatsCard {
	card := StatsCard{Icon: s.Icon, Title: s.Title, Stats: Stats(table)}
	for _, b := range s.Body {
		if b.Kind() == markdown.KindTable {
			continue
		}
		card.Body = append(card.Body, b)
	}
	return card
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
