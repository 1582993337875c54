package site

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/iedon/docpage-go/docpage"
	"github.com/iedon/docpage-go/renderer"
	"github.com/iedon/docpage-go/templatex"
)

const (
	directoryPageRoute  = "/directory"
	directoryPageOutput = "directory.html"
	directoryPageTitle  = "All Pages"
)

func directoryPageHref(base string) string {
	return resolveDirectoryURL(base, directoryPageRoute)
}

func breadcrumbAnchor(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return ""
	}
	segment = strings.ToLower(segment)
	var b strings.Builder
	lastDash := false
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if lastDash || b.Len() == 0 {
				continue
			}
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// directoryEntries groups the loaded pages by the folders of their relative
// paths. Page titles come from metadata.
func directoryEntries(modules map[string]*docpage.Module, routes []string, base string) []*templatex.DirectoryEntry {
	tree := newDirectoryTree(base)
	for _, route := range routes {
		tree.add(route, modules[route].Metadata())
	}
	return tree.entries()
}

type directoryTree struct {
	base    string
	root    *directoryNode
	anchors map[string]struct{}
}

type directoryNode struct {
	title     string
	id        string
	children  map[string]*directoryNode
	documents []*templatex.DirectoryEntry
}

func newDirectoryTree(base string) *directoryTree {
	return &directoryTree{
		base:    base,
		root:    &directoryNode{children: map[string]*directoryNode{}},
		anchors: make(map[string]struct{}),
	}
}

func (t *directoryTree) add(route string, meta docpage.Metadata) {
	rel := strings.Trim(path.Clean("/"+meta.RelativePath), "/")
	if rel == "" {
		return
	}
	segments := strings.Split(rel, "/")

	current := t.root
	for _, segment := range segments[:len(segments)-1] {
		current = t.ensureChild(current, segment)
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = renderer.DeriveTitle(segments[len(segments)-1])
	}
	current.documents = append(current.documents, &templatex.DirectoryEntry{
		Title: title,
		Route: route,
		URL:   resolveDirectoryURL(t.base, route),
		ID:    t.allocateID(normalizeAnchorCandidate(strings.ReplaceAll(strings.Trim(route, "/"), "/", " "))),
	})
}

func (t *directoryTree) ensureChild(parent *directoryNode, segment string) *directoryNode {
	key := strings.ToLower(segment)
	if child, ok := parent.children[key]; ok {
		return child
	}
	title := renderer.DeriveTitle(segment)
	child := &directoryNode{
		title:    title,
		id:       t.allocateID(normalizeAnchorCandidate(title)),
		children: map[string]*directoryNode{},
	}
	parent.children[key] = child
	return child
}

func (t *directoryTree) entries() []*templatex.DirectoryEntry {
	entries, _ := t.root.entries(0)
	return entries
}

func (n *directoryNode) entries(depth int) ([]*templatex.DirectoryEntry, int) {
	entries := make([]*templatex.DirectoryEntry, 0, len(n.children)+len(n.documents))
	total := 0

	keys := make([]string, 0, len(n.children))
	for key := range n.children {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(n.children[keys[i]].title) < strings.ToLower(n.children[keys[j]].title)
	})
	for _, key := range keys {
		child := n.children[key]
		childEntries, childTotal := child.entries(depth + 1)
		if len(childEntries) == 0 {
			continue
		}
		entries = append(entries, &templatex.DirectoryEntry{
			Title:    child.title,
			Children: childEntries,
			Count:    childTotal,
			Depth:    depth + 1,
			ID:       child.id,
		})
		total += childTotal
	}

	sort.SliceStable(n.documents, func(i, j int) bool {
		return strings.ToLower(n.documents[i].Title) < strings.ToLower(n.documents[j].Title)
	})
	for _, doc := range n.documents {
		doc.Depth = depth + 1
	}
	entries = append(entries, n.documents...)
	total += len(n.documents)

	return entries, total
}

func (t *directoryTree) allocateID(preferred string) string {
	base := strings.TrimSpace(preferred)
	if base == "" {
		base = "entry"
	}
	id := base
	suffix := 2
	for {
		if _, exists := t.anchors[id]; !exists {
			t.anchors[id] = struct{}{}
			return id
		}
		id = fmt.Sprintf("%s-%d", base, suffix)
		suffix++
	}
}

func normalizeAnchorCandidate(value string) string {
	slug := breadcrumbAnchor(value)
	if slug == "" {
		return "entry"
	}
	return slug
}

func resolveDirectoryURL(base, route string) string {
	trimmedBase := strings.Trim(strings.TrimSpace(base), "/")
	trimmedRoute := strings.TrimPrefix(strings.TrimSpace(route), "/")
	switch {
	case trimmedBase == "" && trimmedRoute == "":
		return "/"
	case trimmedBase == "":
		return "/" + trimmedRoute
	case trimmedRoute == "":
		return "/" + trimmedBase + "/"
	default:
		return "/" + trimmedBase + "/" + trimmedRoute
	}
}
