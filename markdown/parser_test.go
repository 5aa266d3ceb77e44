// ABOUTME: Tests for the block parser: rule precedence, segmentation, and streaming-prefix behaviour.
// ABOUTME: Includes idempotence and prefix-stability checks plus a fuzz target for termination.

package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const report = `# Apple Quarterly Review

## 📊 Key Metrics
| Metric | Value |
|---|---|
| Revenue growth | 42% |
| PE | 1.2 |
Figures are trailing twelve months.

## 🔍 Analysis
Margins held steady
despite supply pressure.
- Services up
- Hardware flat
1. Buy on dips
2) Watch guidance

### Risks
> **Bottom line** Strong quarter
> with caveats.

---
Closing remarks.`

func TestParseReport(t *testing.T) {
	blocks := Parse(report)

	want := []Block{
		Heading{Level: 1, Text: "Apple Quarterly Review"},
		Heading{Level: 2, Text: "📊 Key Metrics"},
		Table{
			Headers: []string{"Metric", "Value"},
			Rows:    [][]string{{"Revenue growth", "42%"}, {"PE", "1.2"}},
		},
		Paragraph{Text: "Figures are trailing twelve months."},
		Heading{Level: 2, Text: "🔍 Analysis"},
		Paragraph{Text: "Margins held steady\ndespite supply pressure."},
		List{Items: []string{"Services up", "Hardware flat"}},
		List{Ordered: true, Items: []string{"Buy on dips", "Watch guidance"}},
		Heading{Level: 3, Text: "Risks"},
		Blockquote{Text: "**Bottom line** Strong quarter\nwith caveats."},
		Rule{},
		Paragraph{Text: "Closing remarks."},
	}
	assert.Equal(t, want, blocks)
}

func TestParseListSegmentation(t *testing.T) {
	blocks := Parse("- a\n- b\n1. c")
	assert.Equal(t, []Block{
		List{Ordered: false, Items: []string{"a", "b"}},
		List{Ordered: true, Items: []string{"c"}},
	}, blocks)
}

func TestParseRulePrecedence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Block
	}{
		{"empty", "", []Block{}},
		{"only blanks", "\n   \n\t\n", []Block{}},
		{"h1", "# Title  ", []Block{Heading{Level: 1, Text: "Title"}}},
		{"h2 not h1", "## Sub", []Block{Heading{Level: 2, Text: "Sub"}}},
		{"h3", "### Small", []Block{Heading{Level: 3, Text: "Small"}}},
		{"h4 is paragraph", "#### Deep", []Block{Paragraph{Text: "#### Deep"}}},
		{"hash without space", "#tag", []Block{Paragraph{Text: "#tag"}}},
		{"rule before list", "---", []Block{Rule{}}},
		{"rule with padding", "  -----  ", []Block{Rule{}}},
		{"two dashes", "--", []Block{Paragraph{Text: "--"}}},
		{"star item", "* x", []Block{List{Items: []string{"x"}}}},
		{"dash needs space", "-x", []Block{Paragraph{Text: "-x"}}},
		{"paren ordered", "10) ten", []Block{List{Ordered: true, Items: []string{"ten"}}}},
		{"quote needs space", ">x", []Block{Paragraph{Text: ">x"}}},
		{"pipe not first", "a | b", []Block{Paragraph{Text: "a | b"}}},
		{"indented table", "  | a |\n  | 1 |", []Block{Table{Headers: []string{"a"}, Rows: [][]string{{"1"}}}}},
		{"lone table line dropped", "| A | B |", []Block{}},
		{"header and separator only", "| A | B |\n|---|---|", []Block{Table{Headers: []string{"A", "B"}}}},
		{"crlf", "# T\r\n\r\ntext\r\n", []Block{Heading{Level: 1, Text: "T"}, Paragraph{Text: "text"}}},
		{
			"paragraph stops at opener",
			"one\ntwo\n## H\nthree",
			[]Block{Paragraph{Text: "one\ntwo"}, Heading{Level: 2, Text: "H"}, Paragraph{Text: "three"}},
		},
		{
			"paragraph absorbs deep heading",
			"one\n#### four",
			[]Block{Paragraph{Text: "one\n#### four"}},
		},
		{
			"quote run",
			"> a\n> b\nc",
			[]Block{Blockquote{Text: "a\nb"}, Paragraph{Text: "c"}},
		},
		{
			"blank separates lists",
			"- a\n\n- b",
			[]Block{List{Items: []string{"a"}}, List{Items: []string{"b"}}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.input))
		})
	}
}

func TestParseIdempotent(t *testing.T) {
	assert.Equal(t, Parse(report), Parse(report))
}

// Every block that is followed by another block in a line-boundary prefix is
// already closed, so it must appear unchanged when the full text is parsed.
func TestParsePrefixStable(t *testing.T) {
	full := Parse(report)
	lines := strings.Split(report, "\n")
	for n := 1; n <= len(lines); n++ {
		prefix := strings.Join(lines[:n], "\n")
		partial := Parse(prefix)
		if len(partial) == 0 {
			continue
		}
		closed := partial[:len(partial)-1]
		require.LessOrEqual(t, len(partial), len(full), "prefix of %d lines", n)
		assert.Equal(t, full[:len(closed)], closed, "prefix of %d lines", n)
	}
}

func TestParseEveryLineConsumed(t *testing.T) {
	input := "plain\n# h\n- l\n> q\n---\n1. o\ntrailing"
	blocks := Parse(input)
	require.Len(t, blocks, 7)
	kinds := make([]Kind, len(blocks))
	for i, b := range blocks {
		kinds[i] = b.Kind()
	}
	assert.Equal(t, []Kind{KindParagraph, KindHeading, KindList, KindBlockquote, KindRule, KindList, KindParagraph}, kinds)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "table", KindTable.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func FuzzParse(f *testing.F) {
	f.Add(report)
	f.Add("####\n####")
	f.Add("| a |\n|")
	f.Add("> \n>")
	f.Add("1.\t\n-\t")
	f.Add("\r\r\n\n")

	f.Fuzz(func(t *testing.T, input string) {
		first := Parse(input)
		second := Parse(input)
		if len(first) != len(second) {
			t.Fatalf("parse not idempotent: %d vs %d blocks", len(first), len(second))
		}
		lines := len(splitLines(input))
		if len(first) > lines {
			t.Fatalf("more blocks (%d) than lines (%d)", len(first), lines)
		}
	})
}
