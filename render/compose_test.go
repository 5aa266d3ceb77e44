// ABOUTME: Tests for card composition: section runs, stats classification, and value/label extraction.
// ABOUTME: Drives Compose with parsed markdown so block shapes match real streams.

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/cardstream/markdown"
)

func TestIsStatsTable(t *testing.T) {
	tests := []struct {
		name  string
		table markdown.Table
		want  bool
	}{
		{
			name: "percent and decimal rows",
			table: markdown.Table{
				Headers: []string{"Value", "Metric"},
				Rows:    [][]string{{"42%", "营收增长"}, {"1.2", "PE"}},
			},
			want: true,
		},
		{
			name: "two columns by first row",
			table: markdown.Table{
				Headers: []string{"Only"},
				Rows:    [][]string{{"Margin", "18%"}},
			},
			want: true,
		},
		{
			name: "three columns",
			table: markdown.Table{
				Headers: []string{"A", "B", "C"},
				Rows:    [][]string{{"1", "2", "3"}},
			},
		},
		{
			name: "text only",
			table: markdown.Table{
				Headers: []string{"Company", "Sector"},
				Rows:    [][]string{{"Apple", "Tech"}},
			},
		},
		{
			name:  "no rows",
			table: markdown.Table{Headers: []string{"A", "B"}},
		},
		{
			name: "stray digit in text table",
			table: markdown.Table{
				Headers: []string{"Name", "Note"},
				Rows:    [][]string{{"Plan B", "version 2"}},
			},
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsStatsTable(tc.table))
		})
	}
}

func TestStats(t *testing.T) {
	stats := Stats(markdown.Table{
		Headers: []string{"Value", "Metric"},
		Rows:    [][]string{{"42%", "营收增长"}, {"1.2", "PE"}},
	})
	assert.Equal(t, []Stat{
		{Value: "42%", Label: "营收增长", Color: "red"},
		{Value: "1.2", Label: "PE", Color: "red"},
	}, stats)
}

func TestStatsLabelFallbackAndPalette(t *testing.T) {
	stats := Stats(markdown.Table{
		Headers: []string{"Metric", "Growth"},
		Rows: [][]string{
			{"42%"},
			{"Revenue", "1.5B"},
			{"Margin", "18%"},
			{"PE", "21"},
			{"Beta", "0.9"},
		},
	})
	require.Len(t, stats, 5)
	assert.Equal(t, Stat{Value: "42%", Label: "Growth", Color: "red"}, stats[0])
	assert.Equal(t, Stat{Value: "1.5B", Label: "Revenue", Color: "red"}, stats[1])
	assert.Equal(t, "green", stats[2].Color)
	assert.Equal(t, "blue", stats[3].Color)
	assert.Equal(t, "red", stats[4].Color)
}

func TestComposeStatsCard(t *testing.T) {
	units := Compose(markdown.Parse("## 📊 Key Metrics\n| Metric | Value |\n|---|---|\n| Revenue growth | 42% |\nNote.\n\n- extra"))
	require.Len(t, units, 1)
	assert.Equal(t, StatsCard{
		Icon:  "📊",
		Title: "Key Metrics",
		Stats: []Stat{{Value: "42%", Label: "Revenue growth", Color: "red"}},
		Body: []markdown.Block{
			markdown.Paragraph{Text: "Note."},
			markdown.List{Items: []string{"extra"}},
		},
	}, units[0])
}

func TestComposeAnalysisCard(t *testing.T) {
	input := "# Report\n## 🔍 Outlook\nSteady.\n## Risks\n| Company | Sector |\n|---|---|\n| Apple | Tech |"
	units := Compose(markdown.Parse(input))
	require.Len(t, units, 2)
	assert.Equal(t, BlockUnit{Block: markdown.Heading{Level: 1, Text: "Report"}}, units[0])
	assert.Equal(t, AnalysisCard{Sections: []Section{
		{Icon: "🔍", Title: "Outlook", Body: []markdown.Block{markdown.Paragraph{Text: "Steady."}}},
		{Title: "Risks", Body: []markdown.Block{markdown.Table{
			Headers: []string{"Company", "Sector"},
			Rows:    [][]string{{"Apple", "Tech"}},
		}}},
	}}, units[1])
}

func TestComposeMultipleSectionsNeverStats(t *testing.T) {
	input := "## A\n| K | V |\n|---|---|\n| x | 1 |\n## B\ntext"
	units := Compose(markdown.Parse(input))
	require.Len(t, units, 1)
	card, ok := units[0].(AnalysisCard)
	require.True(t, ok, "expected analysis card, got %T", units[0])
	assert.Len(t, card.Sections, 2)
}

func TestComposeRunEndsAtLevelOneHeading(t *testing.T) {
	units := Compose(markdown.Parse("intro\n## A\ntext\n### sub\n# B\n## C"))
	require.Len(t, units, 4)
	assert.IsType(t, BlockUnit{}, units[0])
	first := units[1].(AnalysisCard)
	require.Len(t, first.Sections, 1)
	assert.Equal(t, []markdown.Block{
		markdown.Paragraph{Text: "text"},
		markdown.Heading{Level: 3, Text: "sub"},
	}, first.Sections[0].Body)
	assert.Equal(t, BlockUnit{Block: markdown.Heading{Level: 1, Text: "B"}}, units[2])
	last := units[3].(AnalysisCard)
	assert.Equal(t, []Section{{Title: "C"}}, last.Sections)
}

func TestComposePassThrough(t *testing.T) {
	blocks := markdown.Parse("# T\n---\n> q\n- a")
	units := Compose(blocks)
	require.Len(t, units, len(blocks))
	for i, b := range blocks {
		assert.Equal(t, BlockUnit{Block: b}, units[i])
	}
}
