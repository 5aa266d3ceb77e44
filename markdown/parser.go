// ABOUTME: Line-oriented block parser driven by an ordered rule table of (predicate, consumer) pairs.
// ABOUTME: Safe on any streaming prefix: always advances, never fails, and keeps block order.

package markdown

import (
	"regexp"
	"strings"
)

var (
	unorderedItem = regexp.MustCompile(`^[-*]\s`)
	unorderedMark = regexp.MustCompile(`^[-*]\s+`)
	orderedItem   = regexp.MustCompile(`^\d+[.)]\s`)
	orderedMark   = regexp.MustCompile(`^\d+[.)]\s+`)
	ruleLine      = regexp.MustCompile(`^---+$`)
)

// consumer turns the run of lines starting at lines[i] into at most one block
// and returns the index of the first unconsumed line. It must return > i.
type consumer func(lines []string, i int) (Block, int)

type rule struct {
	name    string
	match   func(line string) bool
	consume consumer
}

// rules is evaluated top to bottom for the line under the cursor; the first
// match wins. The paragraph rule is last and matches everything.
var rules []rule

// openers are the rules whose predicate starts a new block and therefore ends
// a running paragraph.
var openers []rule

func init() {
	rules = []rule{
		{name: "blank", match: isBlank, consume: skipLine},
		{name: "h1", match: isHeading1, consume: heading(1, "# ")},
		{name: "h2", match: isHeading2, consume: heading(2, "## ")},
		{name: "h3", match: isHeading3, consume: heading(3, "### ")},
		{name: "rule", match: isRule, consume: singleRule},
		{name: "blockquote", match: isQuote, consume: consumeQuote},
		{name: "table", match: isTableLine, consume: consumeTable},
		{name: "ul", match: unorderedItem.MatchString, consume: listOf(false, unorderedItem, unorderedMark)},
		{name: "ol", match: orderedItem.MatchString, consume: listOf(true, orderedItem, orderedMark)},
		{name: "paragraph", match: func(string) bool { return true }, consume: consumeParagraph},
	}
	openers = rules[1 : len(rules)-1]
}

// Parse segments text into an ordered sequence of blocks. Blank lines only
// separate blocks. Calling Parse twice on the same text yields equal results.
func Parse(text string) []Block {
	lines := splitLines(text)
	blocks := make([]Block, 0, len(lines)/2+1)
	for i := 0; i < len(lines); {
		for _, r := range rules {
			if !r.match(lines[i]) {
				continue
			}
			b, next := r.consume(lines, i)
			if b != nil {
				blocks = append(blocks, b)
			}
			i = next
			break
		}
	}
	return blocks
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }

func isHeading1(line string) bool {
	return strings.HasPrefix(line, "# ") && !strings.HasPrefix(line, "## ")
}

func isHeading2(line string) bool { return strings.HasPrefix(line, "## ") }

func isHeading3(line string) bool { return strings.HasPrefix(line, "### ") }

func isRule(line string) bool { return ruleLine.MatchString(strings.TrimSpace(line)) }

func isQuote(line string) bool { return strings.HasPrefix(line, "> ") }

func isTableLine(line string) bool {
	return strings.Contains(line, "|") && strings.HasPrefix(strings.TrimSpace(line), "|")
}

func opensBlock(line string) bool {
	for _, r := range openers {
		if r.match(line) {
			return true
		}
	}
	return false
}

func skipLine(_ []string, i int) (Block, int) { return nil, i + 1 }

func heading(level int, prefix string) consumer {
	return func(lines []string, i int) (Block, int) {
		text := strings.TrimSpace(strings.TrimPrefix(lines[i], prefix))
		return Heading{Level: level, Text: text}, i + 1
	}
}

func singleRule(_ []string, i int) (Block, int) { return Rule{}, i + 1 }

func consumeQuote(lines []string, i int) (Block, int) {
	var quoted []string
	for ; i < len(lines) && isQuote(lines[i]); i++ {
		quoted = append(quoted, lines[i][2:])
	}
	return Blockquote{Text: strings.TrimSpace(strings.Join(quoted, "\n"))}, i
}

// consumeTable takes every consecutive table-shaped line. A run that does not
// form a table (a lone header line mid-stream) is dropped without a block.
func consumeTable(lines []string, i int) (Block, int) {
	start := i
	for i < len(lines) && isTableLine(lines[i]) {
		i++
	}
	if t, ok := ParseTable(lines[start:i]); ok {
		return t, i
	}
	return nil, i
}

func listOf(ordered bool, item, marker *regexp.Regexp) consumer {
	return func(lines []string, i int) (Block, int) {
		var items []string
		for ; i < len(lines) && item.MatchString(lines[i]); i++ {
			items = append(items, marker.ReplaceAllString(lines[i], ""))
		}
		return List{Ordered: ordered, Items: items}, i
	}
}

// consumeParagraph always takes the current line, then keeps going until a
// blank line or a line that opens another block.
func consumeParagraph(lines []string, i int) (Block, int) {
	start := i
	i++
	for i < len(lines) && !isBlank(lines[i]) && !opensBlock(lines[i]) {
		i++
	}
	text := strings.TrimSpace(strings.Join(lines[start:i], "\n"))
	return Paragraph{Text: text}, i
}
