package hierarchy

import (
	"bytes"
	"encoding/json"
)

// Section is one node of a reconstructed document outline: the markup
// gathered under a heading plus any nested subsections.
type Section struct {
	Contents string
	Sections *SectionMap
}

func (s *Section) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"contents":`)
	c, err := json.Marshal(s.Contents)
	if err != nil {
		return nil, err
	}
	buf.Write(c)
	if s.Sections.Len() > 0 {
		buf.WriteString(`,"sections":`)
		sub, err := s.Sections.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(sub)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SectionMap is a title→Section mapping that serializes in insertion
// order. Setting an existing title replaces the section but keeps its
// original position, matching insertion-ordered dictionary semantics.
type SectionMap struct {
	titles   []string
	sections map[string]*Section
}

func NewSectionMap() *SectionMap {
	return &SectionMap{sections: make(map[string]*Section)}
}

func (m *SectionMap) Set(title string, s *Section) {
	if _, ok := m.sections[title]; !ok {
		m.titles = append(m.titles, title)
	}
	m.sections[title] = s
}

func (m *SectionMap) Get(title string) (*Section, bool) {
	s, ok := m.sections[title]
	return s, ok
}

// Titles returns the titles in insertion order.
func (m *SectionMap) Titles() []string {
	out := make([]string, len(m.titles))
	copy(out, m.titles)
	return out
}

func (m *SectionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.titles)
}

func (m *SectionMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, title := range m.titles {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(title)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := m.sections[title].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Document is the outline of a single converted notebook, keyed by the
// source filename.
type Document struct {
	Filename string
	Sections *SectionMap
}

func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	k, err := json.Marshal(d.Filename)
	if err != nil {
		return nil, err
	}
	buf.Write(k)
	buf.WriteByte(':')
	v, err := d.Sections.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.Write(v)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
