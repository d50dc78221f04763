package render

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// highlight tokenizes source with chroma and formats it as HTML using
// CSS classes, so pages can carry a single external stylesheet.
func highlight(source, language, style string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	st := styles.Get(style)
	if st == nil {
		st = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "", fmt.Errorf("tokenize source: %w", err)
	}

	var buf strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.Format(&buf, st, iterator); err != nil {
		return "", fmt.Errorf("format source: %w", err)
	}
	return buf.String(), nil
}
