// Package render turns an executed notebook into a flat sequence of HTML
// fragments: one code block per code cell, "Out:" blocks for text
// outputs, image and error blocks, and markdown blocks with heading
// detection. The fragment vocabulary is fixed; downstream hierarchy
// extraction depends on it.
package render

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/aweiler/nbconv/internal/notebook"
)

// Options controls rendering of a single notebook.
type Options struct {
	// UseBase64 embeds images as data URIs instead of writing fig_NN.png
	// files under output_nb_<stem>/.
	UseBase64 bool
	// RenderMarkdown renders markdown cells with goldmark instead of
	// emitting the escaped source verbatim.
	RenderMarkdown bool
	// Highlight emits code cells as chroma-highlighted HTML.
	Highlight bool
	// HighlightStyle is the chroma style name used when Highlight is set.
	HighlightStyle string
}

// Notebook renders an executed notebook into one markup string. inputDir
// is the directory holding the source notebook; image files, when
// written, go to output_nb_<stem>/ beneath it and are referenced by
// relative path.
func Notebook(nb *notebook.Notebook, inputDir, filename string, opts Options) (string, error) {
	r := &renderer{
		opts:     opts,
		inputDir: inputDir,
		filename: filename,
		language: nb.Language(),
	}
	for _, cell := range nb.Cells {
		if err := r.cell(cell); err != nil {
			return "", err
		}
	}
	return strings.Join(r.fragments, "\n"), nil
}

// WrapBody wraps rendered fragments in a minimal standalone HTML page.
func WrapBody(markup string) string {
	return "<html><body>\n" + markup + "\n</body></html>"
}

type renderer struct {
	opts     Options
	inputDir string
	filename string
	language string

	fragments []string
	// aggregated merges consecutive text/plain and stdout payloads into a
	// single "Out:" block. Images flush it; errors do not.
	aggregated strings.Builder
	figID      int

	md goldmark.Markdown // lazily built, RenderMarkdown mode only
}

func (r *renderer) cell(c notebook.Cell) error {
	switch c.CellType {
	case notebook.CellCode:
		return r.codeCell(c)
	case notebook.CellMarkdown:
		return r.markdownCell(c)
	}
	return nil
}

func (r *renderer) codeCell(c notebook.Cell) error {
	source := string(c.Source)

	if r.opts.Highlight {
		block, err := highlight(source, r.language, r.opts.HighlightStyle)
		if err != nil {
			return fmt.Errorf("highlight code cell: %w", err)
		}
		r.emit("<div class='code-cell'>\n\t" + block + "\n</div>")
	} else {
		r.emit("<div class='code-cell'>" +
			"\n\t<code class='language-" + r.language + "'>" +
			"\n\t\t" + html.EscapeString(source) +
			"\n\t</code>" +
			"\n</div>")
	}

	for _, out := range c.Outputs {
		if err := r.output(&out); err != nil {
			return err
		}
	}

	// Anything still buffered after the last output belongs to this cell.
	r.flushAggregated()
	return nil
}

// output applies the per-output rules in a fixed order. The checks are
// independent: a payload may carry both text/plain data and a stream
// marker, and each match appends its own markup.
func (r *renderer) output(out *notebook.Output) error {
	if text, ok := out.PlainText(); ok {
		r.aggregate(html.EscapeString(text))
	}

	if out.OutputType == notebook.OutputStream && out.Name == "stdout" {
		r.aggregate(html.EscapeString(string(out.Text)))
	}

	if b64, ok := out.PNGBase64(); ok {
		r.flushAggregated()
		if err := r.image(out, b64); err != nil {
			return err
		}
	}

	if out.OutputType == notebook.OutputError {
		message := html.EscapeString(strings.Join(out.Traceback, "\n"))
		r.emit("<div class='output-cell error'>" +
			"\n\t<pre>" +
			"\n\t\t" + message +
			"\n\t</pre>" +
			"\n</div>")
	}

	return nil
}

func (r *renderer) image(out *notebook.Output, b64 string) error {
	if r.opts.UseBase64 {
		r.emit("<div class='output-cell'>" +
			"\n\t<img src='data:image/png;base64," + b64 + "'/>" +
			"\n</div>")
		return nil
	}

	raw, _, err := out.PNG()
	if err != nil {
		return err
	}

	r.figID++
	name := figureName(r.figID)
	folder := "output_nb_" + notebookStem(r.filename)

	dir := filepath.Join(r.inputDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create image output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	r.emit("<div class='output-cell'>" +
		"\n\t<img src='" + filepath.Join(folder, name) + "'/>" +
		"\n</div>")
	return nil
}

func (r *renderer) aggregate(escaped string) {
	r.aggregated.WriteString("\n\t\t" + escaped)
}

func (r *renderer) flushAggregated() {
	if r.aggregated.Len() == 0 {
		return
	}
	r.emit("<div class='output-cell'>" +
		"<div class='output-label'>" +
		"\n\tOut:" +
		"\n</div>" +
		"\n\t<div class='output-code'>" +
		r.aggregated.String() +
		"\n\t</div>" +
		"\n</div>")
	r.aggregated.Reset()
}

func (r *renderer) emit(fragment string) {
	r.fragments = append(r.fragments, fragment)
}

// figureName numbers images fig_01.png onward. Numbers over ten are
// unpadded; ten itself keeps the historical zero prefix (fig_010.png).
func figureName(id int) string {
	if id <= 10 {
		return "fig_0" + strconv.Itoa(id) + ".png"
	}
	return "fig_" + strconv.Itoa(id) + ".png"
}

// notebookStem strips everything from the first ".ipynb" in filename.
func notebookStem(filename string) string {
	stem, _, _ := strings.Cut(filename, ".ipynb")
	return stem
}
