package site

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

const themeAssetPrefix = "theme"

// AssetPath resolves a request path to a static file on disk. Theme assets
// live under /theme/ and everything else is looked up in the source tree.
// Markdown sources are never served raw.
func (s *Service) AssetPath(requestPath string) (string, bool) {
	clean := path.Clean("/" + strings.TrimSpace(requestPath))
	if clean == "/" || isMarkdown(clean) {
		return "", false
	}
	ext := strings.ToLower(path.Ext(clean))
	if ext == "" || ext == ".html" {
		return "", false
	}

	rel := strings.TrimPrefix(clean, "/")
	root := s.cfg.SourceDir
	if after, ok := strings.CutPrefix(rel, themeAssetPrefix+"/"); ok && s.templates.StaticDir != "" {
		rel = after
		root = s.templates.StaticDir
	}
	for _, segment := range strings.Split(rel, "/") {
		if isIgnorable(segment) {
			return "", false
		}
	}

	target := filepath.Join(root, filepath.FromSlash(rel))
	if !isWithin(root, target) {
		return "", false
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return "", false
	}
	return target, true
}

func isWithin(base, target string) bool {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}
