package notebook

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Cell types defined by the nbformat schema.
const (
	CellCode     = "code"
	CellMarkdown = "markdown"
)

// Output types defined by the nbformat schema.
const (
	OutputStream        = "stream"
	OutputError         = "error"
	OutputExecuteResult = "execute_result"
	OutputDisplayData   = "display_data"
)

// MIME keys this tool cares about inside output data bundles.
const (
	MIMETextPlain = "text/plain"
	MIMEImagePNG  = "image/png"
)

// MultiLine is a text field that nbformat stores either as a plain string
// or as a list of line strings. It always unmarshals to the joined form.
type MultiLine string

func (m *MultiLine) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MultiLine(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("text field is neither string nor string list: %w", err)
	}
	*m = MultiLine(strings.Join(lines, ""))
	return nil
}

func (m MultiLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

// Notebook is a parsed .ipynb document.
type Notebook struct {
	Cells         []Cell                     `json:"cells"`
	Metadata      map[string]json.RawMessage `json:"metadata,omitempty"`
	NBFormat      int                        `json:"nbformat"`
	NBFormatMinor int                        `json:"nbformat_minor"`
}

// Cell is a single notebook cell. Outputs is populated for executed code
// cells only.
type Cell struct {
	CellType string    `json:"cell_type"`
	Source   MultiLine `json:"source"`
	Outputs  []Output  `json:"outputs,omitempty"`
}

// Output is one execution result attached to a code cell. The populated
// fields depend on OutputType: stream outputs carry Name and Text,
// data-bearing outputs carry Data, error outputs carry Traceback.
type Output struct {
	OutputType string                     `json:"output_type"`
	Name       string                     `json:"name,omitempty"`
	Text       MultiLine                  `json:"text,omitempty"`
	Data       map[string]json.RawMessage `json:"data,omitempty"`
	Traceback  []string                   `json:"traceback,omitempty"`
}

// PlainText returns the text/plain payload of a data-bearing output and
// whether one was present.
func (o *Output) PlainText() (string, bool) {
	return o.textData(MIMETextPlain)
}

// PNG returns the decoded image/png payload of a data-bearing output and
// whether one was present. nbformat stores the image base64-encoded.
func (o *Output) PNG() ([]byte, bool, error) {
	enc, ok := o.textData(MIMEImagePNG)
	if !ok {
		return nil, false, nil
	}
	// Kernels emit the payload with a trailing newline.
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(enc))
	if err != nil {
		return nil, true, fmt.Errorf("decode image/png payload: %w", err)
	}
	return raw, true, nil
}

// PNGBase64 returns the raw base64 image/png payload, newline-stripped,
// suitable for a data URI.
func (o *Output) PNGBase64() (string, bool) {
	enc, ok := o.textData(MIMEImagePNG)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(enc), true
}

func (o *Output) textData(mime string) (string, bool) {
	raw, ok := o.Data[mime]
	if !ok {
		return "", false
	}
	var m MultiLine
	if err := m.UnmarshalJSON(raw); err != nil {
		return "", false
	}
	return string(m), true
}

// Read parses an .ipynb document.
func Read(r io.Reader) (*Notebook, error) {
	var nb Notebook
	dec := json.NewDecoder(r)
	if err := dec.Decode(&nb); err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}
	return &nb, nil
}

// ReadFile parses the .ipynb document at path.
func ReadFile(path string) (*Notebook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open notebook: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Language returns the kernel language recorded in the notebook metadata,
// defaulting to "python".
func (nb *Notebook) Language() string {
	raw, ok := nb.Metadata["kernelspec"]
	if !ok {
		return "python"
	}
	var spec struct {
		Language string `json:"language"`
	}
	if err := json.Unmarshal(raw, &spec); err != nil || spec.Language == "" {
		return "python"
	}
	return spec.Language
}
