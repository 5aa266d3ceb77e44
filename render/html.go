// ABOUTME: HTML renderer for composed units: cards, tables with trend cells, conclusion quotes, lists.
// ABOUTME: Pure string building; every piece of source text passes through escaping or Inline.

package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/2389-research/cardstream/markdown"
)

// DefaultConclusionTitle is used for conclusion cards without a leading bold span.
const DefaultConclusionTitle = "Core Conclusion"

const conclusionIcon = "💡"

const statUnitMarkup = `<span class="stat-unit">%</span>`

var (
	trendPattern = regexp.MustCompile(`^[+-]?\d+\.?\d*%$`)
	leadingBold  = regexp.MustCompile(`^\*\*(.+?)\*\*`)
)

// HTML renders units in order. The final flag marks the last pass of a stream;
// the markup rules are the same for interim and final passes.
func HTML(units []Unit, final bool) string {
	var b strings.Builder
	for _, u := range units {
		writeUnit(&b, u)
	}
	return b.String()
}

// Markdown runs the full parse, compose and render pipeline on text.
func Markdown(text string, final bool) string {
	return HTML(Compose(markdown.Parse(text)), final)
}

func writeUnit(b *strings.Builder, u Unit) {
	switch u := u.(type) {
	case BlockUnit:
		writeBlock(b, u.Block)
	case StatsCard:
		writeStatsCard(b, u)
	case AnalysisCard:
		writeAnalysisCard(b, u)
	}
}

// writeBlock emits the generic markup for one block.
func writeBlock(b *strings.Builder, block markdown.Block) {
	switch block := block.(type) {
	case markdown.Heading:
		fmt.Fprintf(b, "<h%d>%s</h%d>", block.Level, Inline(block.Text), block.Level)
	case markdown.Rule:
		b.WriteString("<hr>")
	case markdown.Blockquote:
		writeBlockquote(b, block.Text)
	case markdown.Table:
		writeTable(b, block)
	case markdown.List:
		tag := "ul"
		if block.Ordered {
			tag = "ol"
		}
		b.WriteString("<" + tag + ">")
		for _, item := range block.Items {
			b.WriteString("<li>" + Inline(item) + "</li>")
		}
		b.WriteString("</" + tag + ">")
	case markdown.Paragraph:
		b.WriteString("<p>" + Inline(block.Text) + "</p>")
	}
}

// writeBlockquote renders a quote containing bold text as a conclusion card;
// a leading bold span becomes the card title.
func writeBlockquote(b *strings.Builder, text string) {
	if !strings.Contains(text, "**") {
		b.WriteString("<blockquote>" + Inline(text) + "</blockquote>")
		return
	}
	title, body := DefaultConclusionTitle, text
	if m := leadingBold.FindStringSubmatch(text); m != nil {
		title = m[1]
		body = strings.TrimSpace(text[len(m[0]):])
	}
	b.WriteString(`<div class="card card-conclusion">`)
	b.WriteString(`<div class="card-header"><span class="card-header-icon">` + conclusionIcon + `</span>`)
	b.WriteString(html.EscapeString(title) + `</div>`)
	b.WriteString(`<div class="card-body">` + Inline(body) + `</div>`)
	b.WriteString(`</div>`)
}

func writeTable(b *strings.Builder, t markdown.Table) {
	b.WriteString(`<div class="card card-table"><table><thead><tr>`)
	for _, h := range t.Headers {
		b.WriteString("<th>" + Inline(h) + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range t.Rows {
		b.WriteString("<tr>")
		for _, c := range row {
			b.WriteString("<td>" + trendCell(c) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></div>")
}

// trendCell marks signed percentages; the sign is decided by a leading '-'.
func trendCell(raw string) string {
	formatted := Inline(raw)
	trimmed := strings.TrimSpace(raw)
	if !trendPattern.MatchString(trimmed) {
		return formatted
	}
	class := "change-positive"
	if strings.HasPrefix(trimmed, "-") {
		class = "change-negative"
	}
	return `<span class="` + class + `">` + formatted + `</span>`
}

func writeStatsCard(b *strings.Builder, c StatsCard) {
	b.WriteString(`<div class="card card-stats"><div class="card-header">`)
	if c.Icon != "" {
		b.WriteString(`<span class="card-header-icon">` + html.EscapeString(c.Icon) + `</span>`)
	}
	b.WriteString(Inline(c.Title) + `</div><div class="stats-grid">`)
	for _, s := range c.Stats {
		value := strings.Replace(html.EscapeString(s.Value), "%", statUnitMarkup, 1)
		b.WriteString(`<div class="stat-item">`)
		b.WriteString(`<div class="stat-value ` + s.Color + `">` + value + `</div>`)
		b.WriteString(`<div class="stat-label">` + html.EscapeString(s.Label) + `</div>`)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></div>`)
	for _, block := range c.Body {
		writeBlock(b, block)
	}
}

func writeAnalysisCard(b *strings.Builder, c AnalysisCard) {
	b.WriteString(`<div class="card card-analysis">`)
	for _, s := range c.Sections {
		b.WriteString(`<div class="analysis-section"><div class="analysis-title">`)
		if s.Icon != "" {
			b.WriteString(`<span class="section-icon">` + html.EscapeString(s.Icon) + `</span>`)
		}
		b.WriteString(`<span>` + Inline(s.Title) + `</span></div><div class="analysis-body">`)
		for _, block := range s.Body {
			writeBlock(b, block)
		}
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`</div>`)
}
