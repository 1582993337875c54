package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/iedon/docpage-go/bundle"
	"github.com/iedon/docpage-go/config"
	"github.com/iedon/docpage-go/docpage"
	"github.com/iedon/docpage-go/gitutil"
	"github.com/iedon/docpage-go/renderer"
)

// Compiler turns a markdown source tree into page bundles.
type Compiler struct {
	cfg      *config.Config
	logger   *slog.Logger
	renderer *renderer.Renderer
	repo     *gitutil.Repository
}

// NewCompiler prepares a compiler. When last-updated timestamps are enabled
// and the source tree is not a git work tree, timestamps are left empty.
func NewCompiler(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Compiler{
		cfg:      cfg,
		logger:   logger,
		renderer: renderer.New(renderer.WithHeaderLevels(cfg.HeaderLevels[0], cfg.HeaderLevels[1])),
	}
	if cfg.LastUpdated {
		repo, err := gitutil.Open(ctx, cfg.Git.BinPath, cfg.SourceDir, cfg.GitTimeout)
		if err != nil {
			logger.Warn("lastUpdated disabled", "dir", cfg.SourceDir, "error", err)
		} else {
			c.repo = repo
		}
	}
	return c
}

// Compile writes one bundle per markdown source and removes bundles whose
// source is gone. It returns the number of bundles written.
func (c *Compiler) Compile(ctx context.Context) (int, error) {
	sources, err := c.sources()
	if err != nil {
		return 0, err
	}
	if len(sources) == 0 {
		return 0, fmt.Errorf("%s: %w", c.cfg.SourceDir, ErrNoSources)
	}

	written := make(map[string]struct{}, len(sources))
	for _, rel := range sources {
		if err := ctx.Err(); err != nil {
			return len(written), err
		}
		b, err := c.CompileFile(ctx, rel)
		if err != nil {
			return len(written), err
		}
		if err := bundle.Write(c.cfg.BundleDir, b); err != nil {
			return len(written), fmt.Errorf("write bundle %s: %w", rel, err)
		}
		written[bundle.FileName(rel)] = struct{}{}
	}

	removed, err := c.removeStale(written)
	if err != nil {
		return len(written), err
	}
	c.logger.Info("compiled", "pages", len(written), "removed", removed, "bundleDir", c.cfg.BundleDir)
	return len(written), nil
}

// CompileFile renders the markdown file at rel, relative to the source
// directory, into a bundle.
func (c *Compiler) CompileFile(ctx context.Context, rel string) (bundle.Bundle, error) {
	rel = filepath.ToSlash(rel)
	data, err := os.ReadFile(filepath.Join(c.cfg.SourceDir, filepath.FromSlash(rel)))
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("read %s: %w", rel, err)
	}
	rendered, err := c.renderer.Render(data)
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("render %s: %w", rel, err)
	}

	title := rendered.Title
	if title == "" {
		title = renderer.DeriveTitle(rel)
	}
	meta := docpage.Metadata{
		Title:        title,
		Description:  rendered.Description,
		Frontmatter:  rendered.Frontmatter,
		Headers:      c.renderer.Headers(rendered.Headings),
		RelativePath: rel,
		FilePath:     rel,
		LastUpdated:  c.lastUpdated(ctx, rel),
	}
	return bundle.FromModule(docpage.NewModule(meta, docpage.NewFragment(rendered.Segments...))), nil
}

func (c *Compiler) lastUpdated(ctx context.Context, rel string) *time.Time {
	if c.repo == nil {
		return nil
	}
	commit, err := c.repo.LastCommit(ctx, rel)
	if err != nil {
		c.logger.Debug("git history", "path", rel, "error", err)
		return nil
	}
	if commit == nil {
		return nil
	}
	at := commit.CommittedAt
	return &at
}

func (c *Compiler) sources() ([]string, error) {
	root := c.cfg.SourceDir
	files := make([]string, 0, 64)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root && isIgnorable(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isMarkdown(p) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (c *Compiler) removeStale(keep map[string]struct{}) (int, error) {
	root := c.cfg.BundleDir
	removed := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !bundle.IsBundleFile(p) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if _, ok := keep[filepath.ToSlash(rel)]; ok {
			return nil
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}
