package docpage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Header is a single entry of the page outline.
type Header struct {
	Level    int      `json:"level"`
	Title    string   `json:"title"`
	Slug     string   `json:"slug"`
	Link     string   `json:"link"`
	Children []Header `json:"children"`
}

// Metadata describes a documentation page. Values handed out by a Module are
// copies; the record a Module was built with never changes.
type Metadata struct {
	Title        string
	Description  string
	Frontmatter  map[string]any
	Headers      []Header
	RelativePath string
	FilePath     string
	LastUpdated  *time.Time
}

type rawMetadata struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Frontmatter  map[string]any `json:"frontmatter"`
	Headers      []Header       `json:"headers"`
	RelativePath string         `json:"relativePath"`
	FilePath     string         `json:"filePath"`
	LastUpdated  *int64         `json:"lastUpdated"`
}

// ParseMetadata decodes a serialized metadata record. lastUpdated is epoch
// milliseconds or null.
func ParseMetadata(data []byte) (Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(bytes.TrimSpace(data), &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	return meta, nil
}

// MarshalJSON encodes lastUpdated as epoch milliseconds, or null when unknown.
func (m Metadata) MarshalJSON() ([]byte, error) {
	raw := rawMetadata{
		Title:        m.Title,
		Description:  m.Description,
		Frontmatter:  m.Frontmatter,
		Headers:      m.Headers,
		RelativePath: m.RelativePath,
		FilePath:     m.FilePath,
	}
	if raw.Frontmatter == nil {
		raw.Frontmatter = map[string]any{}
	}
	if raw.Headers == nil {
		raw.Headers = []Header{}
	}
	if m.LastUpdated != nil {
		ms := m.LastUpdated.UnixMilli()
		raw.LastUpdated = &ms
	}
	return json.Marshal(raw)
}

// UnmarshalJSON reads lastUpdated from epoch milliseconds.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata{
		Title:        raw.Title,
		Description:  raw.Description,
		Frontmatter:  raw.Frontmatter,
		Headers:      raw.Headers,
		RelativePath: raw.RelativePath,
		FilePath:     raw.FilePath,
	}
	if m.Frontmatter == nil {
		m.Frontmatter = map[string]any{}
	}
	if m.Headers == nil {
		m.Headers = []Header{}
	}
	if raw.LastUpdated != nil {
		stamp := time.UnixMilli(*raw.LastUpdated).UTC()
		m.LastUpdated = &stamp
	}
	return nil
}

// Clone returns a deep copy of the record.
func (m Metadata) Clone() Metadata {
	out := m
	out.Frontmatter = cloneFrontmatter(m.Frontmatter)
	out.Headers = cloneHeaders(m.Headers)
	if m.LastUpdated != nil {
		stamp := *m.LastUpdated
		out.LastUpdated = &stamp
	}
	return out
}

func cloneHeaders(in []Header) []Header {
	if in == nil {
		return []Header{}
	}
	out := make([]Header, len(in))
	for i, h := range in {
		out[i] = h
		if h.Children != nil {
			out[i].Children = cloneHeaders(h.Children)
		}
	}
	return out
}

func cloneFrontmatter(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneFrontmatter(value)
	case map[any]any:
		out := make(map[any]any, len(value))
		maps.Copy(out, value)
		for k, inner := range out {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, inner := range value {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return value
	}
}
