package site

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iedon/docpage-go/fsutil"
)

// Export renders every loaded page into the output directory together with
// the directory page, the 404 page, the search index and static assets. The
// new tree is built next to the output directory and swapped in at the end.
func (s *Service) Export(ctx context.Context) error {
	finalDir := s.cfg.OutputDir
	parent := filepath.Dir(finalDir)
	if parent == "" {
		parent = "."
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("ensure output parent: %w", err)
	}

	tempDir, err := os.MkdirTemp(parent, ".__build-")
	if err != nil {
		return fmt.Errorf("create temp output dir: %w", err)
	}
	cleanTemp := true
	defer func() {
		if cleanTemp {
			_ = os.RemoveAll(tempDir)
		}
	}()

	if err := s.copySourceAssets(tempDir); err != nil {
		return err
	}

	_, routes := s.snapshot()
	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			return err
		}
		html, err := s.RenderFullPage(ctx, route)
		if err != nil {
			return fmt.Errorf("render %s: %w", route, err)
		}
		if err := writeOutput(tempDir, htmlPathFrom(route), html); err != nil {
			return err
		}
	}

	directory, err := s.RenderFullPage(ctx, directoryPageRoute)
	if err != nil {
		return fmt.Errorf("render directory: %w", err)
	}
	if err := writeOutput(tempDir, directoryPageOutput, directory); err != nil {
		return err
	}

	notFound, err := s.RenderNotFoundPage("")
	if err != nil {
		return fmt.Errorf("render 404: %w", err)
	}
	if err := writeOutput(tempDir, "404.html", notFound); err != nil {
		return err
	}

	if err := writeOutput(tempDir, "search-index.json", s.SearchIndex()); err != nil {
		return err
	}

	if s.templates.StaticDir != "" {
		if err := fsutil.CopyTree(s.templates.StaticDir, filepath.Join(tempDir, themeAssetPrefix)); err != nil {
			return fmt.Errorf("copy theme assets: %w", err)
		}
	}

	backupDir := finalDir + ".old"
	if err := os.RemoveAll(backupDir); err != nil {
		return fmt.Errorf("clean backup dir: %w", err)
	}
	if err := os.Rename(finalDir, backupDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate old output: %w", err)
	}
	if err := os.Rename(tempDir, finalDir); err != nil {
		_ = os.Rename(backupDir, finalDir)
		return fmt.Errorf("activate new output: %w", err)
	}
	_ = os.RemoveAll(backupDir)
	cleanTemp = false

	s.logger.Info("exported", "pages", len(routes), "outputDir", finalDir)
	return nil
}

// copySourceAssets copies non-markdown files of the source tree, such as
// images, so relative links keep working.
func (s *Service) copySourceAssets(dst string) error {
	root := s.cfg.SourceDir
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root && (isIgnorable(p) || s.isBuildOutput(p)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || isMarkdown(p) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if err := fsutil.CopyFile(p, filepath.Join(dst, rel)); err != nil {
			return fmt.Errorf("copy asset %s: %w", filepath.ToSlash(rel), err)
		}
		return nil
	})
}

// isBuildOutput reports whether p lies in a generated tree, which may be
// nested inside the source directory.
func (s *Service) isBuildOutput(p string) bool {
	for _, dir := range []string{s.cfg.BundleDir, s.cfg.OutputDir, s.cfg.OutputDir + ".old"} {
		if dir != "" && isWithin(dir, p) {
			return true
		}
	}
	return false
}

func writeOutput(dir, rel string, data []byte) error {
	target := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}
