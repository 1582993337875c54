package renderer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlRenderer "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/iedon/docpage-go/docpage"
)

// Heading represents a heading entry extracted from the source.
type Heading struct {
	ID    string
	Text  string
	Level int
}

// RenderResult is the compiled form of one markdown document.
type RenderResult struct {
	Title       string
	Description string
	Frontmatter map[string]any
	Headings    []Heading
	Segments    []string
	PlainText   string
}

// Renderer transforms markdown sources into page fragments.
type Renderer struct {
	md           goldmark.Markdown
	headerLevels [2]int
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithHeaderLevels limits which heading levels are listed in page headers.
// A zero range disables header extraction.
func WithHeaderLevels(minLevel, maxLevel int) Option {
	return func(r *Renderer) {
		r.headerLevels = [2]int{minLevel, maxLevel}
	}
}

// New constructs a renderer with GitHub-flavored markdown extensions and front matter support.
func New(opts ...Option) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.DefinitionList,
			extension.Footnote,
			extension.Table,
			extension.TaskList,
			extension.Typographer,
			extension.Strikethrough,
			meta.Meta,
		),
		goldmark.WithParserOptions(
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(
			htmlRenderer.WithUnsafe(),
		),
	)

	r := &Renderer{md: md, headerLevels: [2]int{2, 3}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// headerAnchor builds the permalink appended to a heading. The node is
// flagged as code so its markup is written verbatim.
func headerAnchor(id, title string) ast.Node {
	markup := fmt.Sprintf(` <a class="header-anchor" href="#%s" aria-label="Permalink to &quot;%s&quot;">`+"\u200b</a>",
		attrEscaper.Replace(id), attrEscaper.Replace(title))
	anchor := ast.NewString([]byte(markup))
	anchor.SetCode(true)
	return anchor
}

// Render compiles markdown into a list of top-level HTML segments plus the
// metadata needed to describe the page.
func (r *Renderer) Render(src []byte) (*RenderResult, error) {
	ctx := parser.NewContext()
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	headings := make([]Heading, 0, 16)
	plainBuilder := &strings.Builder{}
	slugCounts := make(map[string]int)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering {
				attr, _ := node.AttributeString("id")
				text := extractText(node, src)
				id := attributeToString(attr)
				if id == "" {
					base := slugify(text)
					count := slugCounts[base]
					if count > 0 {
						id = fmt.Sprintf("%s-%d", base, count)
					} else {
						id = base
					}
					slugCounts[base] = count + 1
					node.SetAttributeString("id", []byte(id))
				} else {
					slugCounts[id]++
				}
				node.SetAttributeString("tabindex", []byte("-1"))
				node.AppendChild(node, headerAnchor(id, text))
				headings = append(headings, Heading{ID: id, Text: text, Level: node.Level})
			}
		case *ast.Text:
			if entering {
				plainBuilder.Write(node.Segment.Value(src))
				plainBuilder.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	segments := make([]string, 0, doc.ChildCount())
	var buf bytes.Buffer
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		buf.Reset()
		if err := r.md.Renderer().Render(&buf, src, child); err != nil {
			return nil, err
		}
		if seg := strings.TrimRight(buf.String(), "\n"); seg != "" {
			segments = append(segments, seg)
		}
	}

	fm := normalizeMap(meta.Get(ctx))
	result := &RenderResult{
		Title:       stringField(fm, "title"),
		Description: stringField(fm, "description"),
		Frontmatter: fm,
		Headings:    headings,
		Segments:    segments,
		PlainText:   strings.TrimSpace(plainBuilder.String()),
	}
	if result.Title == "" {
		for _, h := range headings {
			if h.Level == 1 {
				result.Title = h.Text
				break
			}
		}
	}
	return result, nil
}

// Headers builds the nested page outline from the configured heading levels.
func (r *Renderer) Headers(headings []Heading) []docpage.Header {
	minLevel, maxLevel := r.headerLevels[0], r.headerLevels[1]
	out := []docpage.Header{}
	if minLevel <= 0 || maxLevel < minLevel {
		return out
	}

	type frame struct {
		level int
		list  *[]docpage.Header
	}
	stack := []frame{{level: minLevel - 1, list: &out}}
	for _, h := range headings {
		if h.Level < minLevel || h.Level > maxLevel {
			continue
		}
		for len(stack) > 1 && stack[len(stack)-1].level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].list
		*parent = append(*parent, docpage.Header{
			Level:    h.Level,
			Title:    h.Text,
			Slug:     h.ID,
			Link:     "#" + h.ID,
			Children: []docpage.Header{},
		})
		added := &(*parent)[len(*parent)-1]
		stack = append(stack, frame{level: h.Level, list: &added.Children})
	}
	return out
}

// DeriveTitle turns a file name into a human readable fallback title.
func DeriveTitle(relPath string) string {
	name := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Untitled"
	}
	return name
}

func stringField(fm map[string]any, key string) string {
	if v, ok := fm[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// normalizeMap converts YAML maps with interface keys so the front matter can
// be encoded as JSON.
func normalizeMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return normalizeMap(value)
	case map[any]any:
		out := make(map[string]any, len(value))
		for k, inner := range value {
			out[fmt.Sprint(k)] = normalizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, inner := range value {
			out[i] = normalizeValue(inner)
		}
		return out
	default:
		return value
	}
}

func extractText(root ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if n == root {
			return ast.WalkContinue, nil
		}
		if text, ok := n.(*ast.Text); ok && entering {
			sb.Write(text.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func attributeToString(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return ""
	}
}

func slugify(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "section"
	}
	var sb strings.Builder
	lastDash := false
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if sb.Len() == 0 || lastDash {
				continue
			}
			sb.WriteByte('-')
			lastDash = true
		default:
			// Skip other characters
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		return "section"
	}
	return slug
}
