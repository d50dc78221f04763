// Package hierarchy rebuilds a nested heading outline from rendered
// notebook markup. Headings nest under the nearest preceding heading of a
// strictly lower level; every non-heading sibling element between a
// heading and the next one belongs to that heading's contents.
package hierarchy

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const headingSelector = "h1, h2, h3, h4, h5, h6"

// Extract parses markup and builds the outline Document for filename.
func Extract(markup, filename string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	root := NewSectionMap()

	type frame struct {
		section *Section
		level   int
	}
	var stack []frame

	var walkErr error
	doc.Find(headingSelector).Each(func(_ int, h *goquery.Selection) {
		if walkErr != nil {
			return
		}
		level := int(goquery.NodeName(h)[1] - '0')
		title := strings.TrimSpace(h.Text())

		contents, err := sectionContents(h)
		if err != nil {
			walkErr = err
			return
		}
		section := &Section{Contents: contents}

		// A heading closes every open section at its own level or deeper.
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) > 0 {
			parent := stack[len(stack)-1].section
			if parent.Sections == nil {
				parent.Sections = NewSectionMap()
			}
			parent.Sections.Set(title, section)
		} else {
			root.Set(title, section)
		}

		stack = append(stack, frame{section: section, level: level})
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return &Document{Filename: filename, Sections: root}, nil
}

// sectionContents is the heading's own markup followed by every element
// sibling up to, and not including, the next heading.
func sectionContents(h *goquery.Selection) (string, error) {
	var buf strings.Builder

	own, err := goquery.OuterHtml(h)
	if err != nil {
		return "", fmt.Errorf("render heading: %w", err)
	}
	buf.WriteString(own)

	var sibErr error
	h.NextUntil(headingSelector).Each(func(_ int, sib *goquery.Selection) {
		if sibErr != nil {
			return
		}
		frag, err := goquery.OuterHtml(sib)
		if err != nil {
			sibErr = fmt.Errorf("render sibling: %w", err)
			return
		}
		buf.WriteString(frag)
	})
	if sibErr != nil {
		return "", sibErr
	}

	return buf.String(), nil
}
