package render

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/aweiler/nbconv/internal/notebook"
)

// BlockKind tags the result of classifying a markdown cell.
type BlockKind int

const (
	// PlainBlock is ordinary markdown content.
	PlainBlock BlockKind = iota
	// HeadingBlock is a cell that holds nothing but a single heading line.
	HeadingBlock
)

// Block is a classified markdown cell.
type Block struct {
	Kind  BlockKind
	Level int    // heading level, set for HeadingBlock
	Text  string // heading text for HeadingBlock, full content for PlainBlock
}

// Classify decides whether an (already escaped) markdown cell is a
// heading cell: after dropping blank lines it must reduce to exactly one
// line starting with "#".
//
// The level is the total count of '#' characters anywhere in the content,
// not the leading run, and the text is the part after the last "# "
// occurrence. Both quirks are long-standing observed behavior that
// published notebooks depend on; do not correct them here.
func Classify(content string) Block {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			lines = append(lines, s)
		}
	}

	if len(lines) == 1 && strings.HasPrefix(lines[0], "#") {
		parts := strings.Split(content, "# ")
		return Block{
			Kind:  HeadingBlock,
			Level: strings.Count(content, "#"),
			Text:  parts[len(parts)-1],
		}
	}

	return Block{Kind: PlainBlock, Text: content}
}

func (r *renderer) markdownCell(c notebook.Cell) error {
	if r.opts.RenderMarkdown {
		return r.markdownCellGoldmark(c)
	}

	escaped := html.EscapeString(string(c.Source))

	switch block := Classify(escaped); block.Kind {
	case HeadingBlock:
		tag := "h" + strconv.Itoa(block.Level)
		r.emit("<div class='markdown-cell'>" +
			"\n\t<" + tag + ">" +
			"\n\t\t" + block.Text +
			"\n\t</" + tag + ">" +
			"\n</div>")
	default:
		r.emit("<div class='markdown-cell'>" +
			"\n\t" + escaped +
			"\n</div>")
	}
	return nil
}

// markdownCellGoldmark renders the cell source as real markdown. Raw
// HTML in the source is escaped by goldmark's default renderer, so the
// injection-safety property holds in this mode too.
func (r *renderer) markdownCellGoldmark(c notebook.Cell) error {
	var buf bytes.Buffer
	if err := r.markdown().Convert([]byte(c.Source), &buf); err != nil {
		return fmt.Errorf("render markdown cell: %w", err)
	}
	r.emit("<div class='markdown-cell'>" +
		"\n\t" + strings.TrimSpace(buf.String()) +
		"\n</div>")
	return nil
}

func (r *renderer) markdown() goldmark.Markdown {
	if r.md == nil {
		r.md = goldmark.New()
	}
	return r.md
}
