// ABOUTME: Block model produced by the streaming markdown parser.
// ABOUTME: A closed set of block kinds: heading, rule, blockquote, table, list, paragraph.

// Package markdown segments a (possibly partial) markdown buffer into a flat
// sequence of typed blocks. It never fails: unrecognised or truncated input
// degrades to paragraphs, and incomplete tables are dropped until their second
// line arrives.
package markdown

// Kind identifies the concrete type of a Block.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindRule
	KindBlockquote
	KindTable
	KindList
)

var kindNames = [...]string{
	KindParagraph:  "paragraph",
	KindHeading:    "heading",
	KindRule:       "rule",
	KindBlockquote: "blockquote",
	KindTable:      "table",
	KindList:       "list",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Block is one classified unit of parsed text. The concrete types are Heading,
// Rule, Blockquote, Table, List and Paragraph.
type Block interface {
	Kind() Kind
}

// Heading is a single-line heading of level 1, 2 or 3.
type Heading struct {
	Level int
	Text  string
}

func (Heading) Kind() Kind { return KindHeading }

// Rule is a horizontal separator.
type Rule struct{}

func (Rule) Kind() Kind { return KindRule }

// Blockquote holds the quoted lines with their "> " markers removed, joined by
// newlines and trimmed.
type Blockquote struct {
	Text string
}

func (Blockquote) Kind() Kind { return KindBlockquote }

// Table holds raw (unformatted) header and row cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

func (Table) Kind() Kind { return KindTable }

// Columns returns the column count used for classification: the header count,
// or the first row's length when the header count is not two.
func (t Table) Columns() int {
	if len(t.Headers) == 2 || len(t.Rows) == 0 {
		return len(t.Headers)
	}
	return len(t.Rows[0])
}

// List is a run of unordered or ordered items with markers stripped.
type List struct {
	Ordered bool
	Items   []string
}

func (List) Kind() Kind { return KindList }

// Paragraph keeps its internal newlines; the text as a whole is trimmed.
type Paragraph struct {
	Text string
}

func (Paragraph) Kind() Kind { return KindParagraph }
