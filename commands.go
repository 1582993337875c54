package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iedon/docpage-go/metrics"
	"github.com/iedon/docpage-go/server"
	"github.com/iedon/docpage-go/site"
	"github.com/iedon/docpage-go/templatex"
	"github.com/iedon/docpage-go/watch"
)

// CompileCmd turns the markdown source tree into page bundles.
type CompileCmd struct {
	Source  string `help:"Markdown source directory (overrides config)" type:"path"`
	Bundles string `help:"Bundle output directory (overrides config)" type:"path"`
}

func (c *CompileCmd) Run(g *Global) error {
	if c.Source != "" {
		g.Config.SourceDir = c.Source
	}
	if c.Bundles != "" {
		g.Config.BundleDir = c.Bundles
	}
	_, err := site.NewCompiler(g.Ctx, g.Config, g.Logger).Compile(g.Ctx)
	return err
}

// ServeCmd hosts the loaded bundles over HTTP.
type ServeCmd struct {
	Listen  string `help:"Listen address, host:port or unix:/path (overrides config)"`
	Compile bool   `help:"Compile sources before loading bundles"`
	Watch   bool   `help:"Reload when sources or bundles change (overrides config)"`
}

func (c *ServeCmd) Run(g *Global) error {
	cfg := g.Config
	if c.Listen != "" {
		cfg.Listen = c.Listen
	}
	if c.Watch {
		cfg.Watch = true
	}
	if c.Compile {
		if _, err := site.NewCompiler(g.Ctx, cfg, g.Logger).Compile(g.Ctx); err != nil {
			return err
		}
	}

	rec := metrics.NewRecorder(nil)
	svc, err := newService(g, rec)
	if err != nil {
		return err
	}
	if cfg.Watch {
		if err := startWatcher(g, svc); err != nil {
			return err
		}
	}

	g.Logger.Info("starting", "listen", cfg.Listen, "pages", len(svc.Pages()), "watch", cfg.Watch)
	return server.New(cfg, svc, rec, g.Logger, SERVER_SIGNATURE).Start(g.Ctx)
}

// ExportCmd writes the loaded bundles as a static site.
type ExportCmd struct {
	Output  string `short:"o" help:"Output directory (overrides config)" type:"path"`
	Compile bool   `help:"Compile sources before loading bundles"`
}

func (c *ExportCmd) Run(g *Global) error {
	if c.Output != "" {
		g.Config.OutputDir = c.Output
	}
	if c.Compile {
		if _, err := site.NewCompiler(g.Ctx, g.Config, g.Logger).Compile(g.Ctx); err != nil {
			return err
		}
	}
	svc, err := newService(g, nil)
	if err != nil {
		return err
	}
	return svc.Export(g.Ctx)
}

func newService(g *Global, rec *metrics.Recorder) (*site.Service, error) {
	templates, err := templatex.Load(g.Config.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	svc := site.NewService(g.Config, templates, rec, g.Logger)
	if err := svc.Reload(g.Ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// startWatcher recompiles and reloads on source changes when a source tree
// exists, and otherwise reloads when bundle files change.
func startWatcher(g *Global, svc *site.Service) error {
	cfg := g.Config
	root := cfg.BundleDir
	onChange := svc.Reload
	exclude := []string{cfg.OutputDir, cfg.OutputDir + ".old"}
	if info, err := os.Stat(cfg.SourceDir); err == nil && info.IsDir() {
		root = cfg.SourceDir
		exclude = append(exclude, cfg.BundleDir)
		compiler := site.NewCompiler(g.Ctx, cfg, g.Logger)
		onChange = func(ctx context.Context) error {
			if _, err := compiler.Compile(ctx); err != nil {
				return err
			}
			return svc.Reload(ctx)
		}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	w, err := watch.New(root, cfg.WatchDebounce, onChange, g.Logger, watch.WithExclude(exclude...))
	if err != nil {
		return err
	}
	go w.Run(g.Ctx)
	return nil
}
