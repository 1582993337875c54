package site

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned when user-provided routes fail validation.
var ErrInvalidPath = errors.New("invalid path")

func normalizeRelPath(input string) (string, error) {
	candidate := strings.TrimSpace(input)
	candidate = strings.ReplaceAll(candidate, "\\", "/")
	candidate = strings.Trim(candidate, "/")
	if candidate == "" {
		return "", errors.Join(ErrInvalidPath, errors.New("empty path"))
	}
	if strings.Contains(candidate, "\x00") {
		return "", errors.Join(ErrInvalidPath, errors.New("contains null byte"))
	}
	if !strings.HasSuffix(strings.ToLower(candidate), ".md") {
		candidate += ".md"
	}

	cleaned := path.Clean(candidate)
	for strings.HasPrefix(cleaned, "./") {
		cleaned = strings.TrimPrefix(cleaned, "./")
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	if strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "/../") {
		return "", errors.Join(ErrInvalidPath, errors.New("path escapes source root"))
	}

	for _, segment := range strings.Split(cleaned, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", errors.Join(ErrInvalidPath, errors.New("invalid path segment"))
		}
	}
	return cleaned, nil
}

func isMarkdown(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".md")
}

func isIgnorable(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, ".") || base == "node_modules"
}

// routeFromPath maps a relative markdown path to its URL route. The home
// document and index.md files map to their directory.
func routeFromPath(relPath, homeDoc string) string {
	slash := filepath.ToSlash(relPath)
	if strings.EqualFold(slash, homeDoc) {
		return "/"
	}
	slash = strings.TrimSuffix(slash, filepath.Ext(slash))
	if slash == "index" {
		return "/"
	}
	if strings.HasSuffix(slash, "/index") {
		slash = strings.TrimSuffix(slash, "index")
	}
	if !strings.HasPrefix(slash, "/") {
		slash = "/" + slash
	}
	return slash
}

func htmlPathFrom(route string) string {
	trimmed := strings.TrimPrefix(route, "/")
	if trimmed == "" {
		return "index.html"
	}
	if strings.HasSuffix(trimmed, "/") {
		return trimmed + "index.html"
	}
	return trimmed + ".html"
}

// sanitizeRoute cleans a request path into a route key. A trailing slash is
// kept because directory index routes carry one.
func sanitizeRoute(input string) string {
	route := strings.TrimSpace(input)
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	trailing := strings.HasSuffix(route, "/")
	cleaned := path.Clean(route)
	if cleaned == "." || cleaned == "/" {
		return "/"
	}
	lower := strings.ToLower(cleaned)
	if strings.HasSuffix(lower, ".html") {
		cleaned = cleaned[:len(cleaned)-len(".html")]
	} else if strings.HasSuffix(lower, ".md") {
		cleaned = cleaned[:len(cleaned)-len(".md")]
	}
	if strings.HasSuffix(cleaned, "/index") {
		return strings.TrimSuffix(cleaned, "index")
	}
	if trailing {
		cleaned += "/"
	}
	return cleaned
}
