package notebook

import (
	"strings"
	"testing"
)

func TestRead_SourceAsLineList(t *testing.T) {
	input := `{
		"cells": [
			{"cell_type": "code", "source": ["import os\n", "print(os.getcwd())"], "outputs": []},
			{"cell_type": "markdown", "source": "# Title"}
		],
		"metadata": {"kernelspec": {"name": "python3", "language": "python"}},
		"nbformat": 4,
		"nbformat_minor": 5
	}`
	nb, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nb.Cells) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(nb.Cells))
	}
	if got := string(nb.Cells[0].Source); got != "import os\nprint(os.getcwd())" {
		t.Errorf("expected joined source, got %q", got)
	}
	if got := string(nb.Cells[1].Source); got != "# Title" {
		t.Errorf("expected plain string source, got %q", got)
	}
	if nb.Language() != "python" {
		t.Errorf("expected language python, got %q", nb.Language())
	}
}

func TestRead_OutputVariants(t *testing.T) {
	input := `{
		"cells": [{
			"cell_type": "code",
			"source": "x",
			"outputs": [
				{"output_type": "stream", "name": "stdout", "text": ["1\n", "2\n"]},
				{"output_type": "execute_result", "data": {"text/plain": "42"}},
				{"output_type": "display_data", "data": {"image/png": "aGk=\n"}},
				{"output_type": "error", "ename": "ValueError", "traceback": ["line1", "line2"]}
			]
		}],
		"nbformat": 4,
		"nbformat_minor": 5
	}`
	nb, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outs := nb.Cells[0].Outputs
	if len(outs) != 4 {
		t.Fatalf("expected 4 outputs, got %d", len(outs))
	}

	if outs[0].OutputType != OutputStream || outs[0].Name != "stdout" {
		t.Errorf("unexpected stream output: %+v", outs[0])
	}
	if got := string(outs[0].Text); got != "1\n2\n" {
		t.Errorf("expected joined stream text, got %q", got)
	}

	text, ok := outs[1].PlainText()
	if !ok || text != "42" {
		t.Errorf("expected text/plain 42, got %q (ok=%v)", text, ok)
	}
	if _, ok := outs[0].PlainText(); ok {
		t.Error("stream output should not report a text/plain payload")
	}

	raw, ok, err := outs[2].PNG()
	if err != nil || !ok {
		t.Fatalf("expected png payload, ok=%v err=%v", ok, err)
	}
	if string(raw) != "hi" {
		t.Errorf("expected decoded png bytes %q, got %q", "hi", raw)
	}
	b64, ok := outs[2].PNGBase64()
	if !ok || b64 != "aGk=" {
		t.Errorf("expected trimmed base64 payload, got %q", b64)
	}

	if outs[3].OutputType != OutputError || len(outs[3].Traceback) != 2 {
		t.Errorf("unexpected error output: %+v", outs[3])
	}
}

func TestRead_MalformedJSON(t *testing.T) {
	if _, err := Read(strings.NewReader("{not json")); err == nil {
		t.Fatal("expected error for malformed notebook")
	}
}

func TestLanguage_Default(t *testing.T) {
	nb := &Notebook{}
	if nb.Language() != "python" {
		t.Errorf("expected default language python, got %q", nb.Language())
	}
}
