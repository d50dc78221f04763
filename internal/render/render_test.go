package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweiler/nbconv/internal/notebook"
)

func codeCell(source string, outputs ...notebook.Output) notebook.Cell {
	return notebook.Cell{
		CellType: notebook.CellCode,
		Source:   notebook.MultiLine(source),
		Outputs:  outputs,
	}
}

func markdownCell(source string) notebook.Cell {
	return notebook.Cell{CellType: notebook.CellMarkdown, Source: notebook.MultiLine(source)}
}

func stdoutOutput(text string) notebook.Output {
	return notebook.Output{
		OutputType: notebook.OutputStream,
		Name:       "stdout",
		Text:       notebook.MultiLine(text),
	}
}

func plainOutput(text string) notebook.Output {
	raw, _ := json.Marshal(text)
	return notebook.Output{
		OutputType: notebook.OutputExecuteResult,
		Data:       map[string]json.RawMessage{notebook.MIMETextPlain: raw},
	}
}

// pngOutput carries base64("hi") as its image payload.
func pngOutput() notebook.Output {
	return notebook.Output{
		OutputType: notebook.OutputDisplayData,
		Data:       map[string]json.RawMessage{notebook.MIMEImagePNG: json.RawMessage(`"aGk=\n"`)},
	}
}

func errorOutput(traceback ...string) notebook.Output {
	return notebook.Output{OutputType: notebook.OutputError, Traceback: traceback}
}

func renderCells(t *testing.T, opts Options, dir string, cells ...notebook.Cell) string {
	t.Helper()
	markup, err := Notebook(&notebook.Notebook{Cells: cells}, dir, "demo.ipynb", opts)
	require.NoError(t, err)
	return markup
}

func TestNotebook_CodeCellWithStdout(t *testing.T) {
	markup := renderCells(t, Options{}, t.TempDir(),
		codeCell("print(1)", stdoutOutput("1\n")))

	want := "<div class='code-cell'>" +
		"\n\t<code class='language-python'>" +
		"\n\t\tprint(1)" +
		"\n\t</code>" +
		"\n</div>" +
		"\n" +
		"<div class='output-cell'>" +
		"<div class='output-label'>" +
		"\n\tOut:" +
		"\n</div>" +
		"\n\t<div class='output-code'>" +
		"\n\t\t1\n" +
		"\n\t</div>" +
		"\n</div>"
	assert.Equal(t, want, markup)
}

func TestNotebook_ConsecutiveTextOutputsAggregate(t *testing.T) {
	markup := renderCells(t, Options{}, t.TempDir(),
		codeCell("f()", plainOutput("first"), stdoutOutput("second\n"), plainOutput("third")))

	// One merged "Out:" block, in output order.
	assert.Equal(t, 1, strings.Count(markup, "Out:"))
	assert.Contains(t, markup, "\n\t\tfirst\n\t\tsecond\n\n\t\tthird")
}

func TestNotebook_ImageFlushesAggregation(t *testing.T) {
	markup := renderCells(t, Options{UseBase64: true}, t.TempDir(),
		codeCell("plot()", plainOutput("before"), pngOutput(), plainOutput("after")))

	assert.Equal(t, 2, strings.Count(markup, "Out:"))

	img := strings.Index(markup, "data:image/png;base64,aGk=")
	before := strings.Index(markup, "before")
	after := strings.Index(markup, "after")
	require.True(t, img >= 0 && before >= 0 && after >= 0)
	assert.Less(t, before, img, "pending text must be flushed before the image")
	assert.Less(t, img, after, "text after the image goes to a later block")
}

func TestNotebook_ErrorDoesNotFlushAggregation(t *testing.T) {
	markup := renderCells(t, Options{}, t.TempDir(),
		codeCell("boom()", plainOutput("pending"), errorOutput("Traceback", "ValueError: boom")))

	// The error block is emitted immediately; the buffered text follows in
	// the single end-of-cell "Out:" block.
	assert.Equal(t, 1, strings.Count(markup, "Out:"))
	errAt := strings.Index(markup, "<div class='output-cell error'>")
	outAt := strings.Index(markup, "Out:")
	require.True(t, errAt >= 0 && outAt >= 0)
	assert.Less(t, errAt, outAt)
	assert.Contains(t, markup, "\n\t\tTraceback\nValueError: boom\n\t</pre>")
}

func TestNotebook_FigureFilesNumbering(t *testing.T) {
	dir := t.TempDir()
	outputs := make([]notebook.Output, 11)
	for i := range outputs {
		outputs[i] = pngOutput()
	}
	markup := renderCells(t, Options{}, dir, codeCell("plots()", outputs...))

	figDir := filepath.Join(dir, "output_nb_demo")
	for _, name := range []string{"fig_01.png", "fig_09.png", "fig_010.png", "fig_11.png"} {
		data, err := os.ReadFile(filepath.Join(figDir, name))
		require.NoError(t, err, name)
		assert.Equal(t, "hi", string(data), name)
	}

	assert.Contains(t, markup, "<img src='"+filepath.Join("output_nb_demo", "fig_01.png")+"'/>")
	assert.Contains(t, markup, "<img src='"+filepath.Join("output_nb_demo", "fig_11.png")+"'/>")
}

func TestNotebook_Base64WritesNoFiles(t *testing.T) {
	dir := t.TempDir()
	renderCells(t, Options{UseBase64: true}, dir, codeCell("plot()", pngOutput()))

	_, err := os.Stat(filepath.Join(dir, "output_nb_demo"))
	assert.True(t, os.IsNotExist(err), "no output directory in base64 mode")
}

func TestNotebook_EscapesEverywhere(t *testing.T) {
	markup := renderCells(t, Options{}, t.TempDir(),
		codeCell("if x < 3: print('<b>')",
			stdoutOutput("<b>bold?</b>\n"),
			errorOutput("  File \"<module>\"", "NameError")),
		markdownCell("Inline <script>alert(1)</script> here"))

	assert.NotContains(t, markup, "<script>")
	assert.NotContains(t, markup, "<b>")
	assert.NotContains(t, markup, "<module>")
	assert.Contains(t, markup, "&lt;script&gt;")
	assert.Contains(t, markup, "&lt;b&gt;")
	assert.Contains(t, markup, "&lt;module&gt;")
	assert.Contains(t, markup, "if x &lt; 3")
}

func TestNotebook_MarkdownHeadingCell(t *testing.T) {
	markup := renderCells(t, Options{}, t.TempDir(), markdownCell("## Sub"))

	want := "<div class='markdown-cell'>" +
		"\n\t<h2>" +
		"\n\t\tSub" +
		"\n\t</h2>" +
		"\n</div>"
	assert.Equal(t, want, markup)
}

func TestNotebook_MarkdownPlainCell(t *testing.T) {
	markup := renderCells(t, Options{}, t.TempDir(),
		markdownCell("Some text.\n\nWith a second paragraph."))

	want := "<div class='markdown-cell'>" +
		"\n\tSome text.\n\nWith a second paragraph." +
		"\n</div>"
	assert.Equal(t, want, markup)
}

func TestNotebook_GoldmarkMode(t *testing.T) {
	markup := renderCells(t, Options{RenderMarkdown: true}, t.TempDir(),
		markdownCell("# Title\n\nBody with *emphasis*."))

	assert.Contains(t, markup, "<h1>Title</h1>")
	assert.Contains(t, markup, "<em>emphasis</em>")
	assert.True(t, strings.HasPrefix(markup, "<div class='markdown-cell'>"))
}

func TestNotebook_GoldmarkModeEscapesRawHTML(t *testing.T) {
	markup := renderCells(t, Options{RenderMarkdown: true}, t.TempDir(),
		markdownCell("Hello <script>alert(1)</script>"))

	assert.NotContains(t, markup, "<script>")
}

func TestNotebook_HighlightMode(t *testing.T) {
	markup := renderCells(t, Options{Highlight: true, HighlightStyle: "github"}, t.TempDir(),
		codeCell("print(1)"))

	assert.Contains(t, markup, "chroma")
	assert.True(t, strings.HasPrefix(markup, "<div class='code-cell'>"))
	assert.NotContains(t, markup, "language-python", "highlight mode replaces the plain code block")
}

func TestNotebook_CellOrderPreserved(t *testing.T) {
	markup := renderCells(t, Options{}, t.TempDir(),
		markdownCell("# First"),
		codeCell("a = 1"),
		markdownCell("## Second"))

	first := strings.Index(markup, "First")
	code := strings.Index(markup, "a = 1")
	second := strings.Index(markup, "Second")
	require.True(t, first >= 0 && code >= 0 && second >= 0)
	assert.Less(t, first, code)
	assert.Less(t, code, second)
}
