package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iedon/docpage-go/bundle"
	"github.com/iedon/docpage-go/config"
	"github.com/iedon/docpage-go/docpage"
	"github.com/iedon/docpage-go/metrics"
	"github.com/iedon/docpage-go/renderer"
	"github.com/iedon/docpage-go/templatex"
)

// Service hosts page modules loaded from bundles and owns their instances.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	templates *templatex.Engine
	minifier  *renderer.Minifier
	metrics   *metrics.Recorder
	search    *SearchCatalog

	mu        sync.RWMutex
	modules   map[string]*docpage.Module
	byRelPath map[string]string
	instances map[string]*docpage.Instance
	routes    []string
	loadedAt  time.Time
}

// NewService constructs a Service instance. metrics may be nil.
func NewService(cfg *config.Config, templates *templatex.Engine, rec *metrics.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		templates: templates,
		minifier:  renderer.NewMinifier(cfg.MinifyEnabled()),
		metrics:   rec,
		search:    newSearchCatalog(),
		modules:   map[string]*docpage.Module{},
		byRelPath: map[string]string{},
		instances: map[string]*docpage.Instance{},
	}
}

// Reload reads every bundle from the bundle directory and replaces the loaded
// modules. Mounted instances are destroyed so the next render rebuilds from
// the new fragments.
func (s *Service) Reload(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveReload(time.Since(start), err)
	}()

	bundles, err := bundle.LoadDir(s.cfg.BundleDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			bundles = nil
		} else {
			return fmt.Errorf("load bundles: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	modules := make(map[string]*docpage.Module, len(bundles))
	byRelPath := make(map[string]string, len(bundles))
	routes := make([]string, 0, len(bundles))
	for _, b := range bundles {
		route := routeFromPath(b.Name, s.cfg.HomeDoc)
		if prev, dup := modules[route]; dup {
			s.logger.Warn("duplicate route", "route", route, "kept", prev.Name(), "skipped", b.Name)
			continue
		}
		modules[route] = b.Module(docpage.WithObserver(s.metrics))
		byRelPath[b.Name] = route
		routes = append(routes, route)
	}
	sort.Strings(routes)

	payload, err := buildSearchIndex(searchEntries(modules, routes))
	if err != nil {
		return fmt.Errorf("build search index: %w", err)
	}

	s.mu.Lock()
	old := s.instances
	s.modules = modules
	s.byRelPath = byRelPath
	s.routes = routes
	s.instances = make(map[string]*docpage.Instance, len(modules))
	s.loadedAt = time.Now()
	s.mu.Unlock()

	for _, inst := range old {
		inst.Destroy()
	}
	s.search.Update(payload)
	s.metrics.SetPagesLoaded(len(modules))
	s.logger.Info("pages loaded", "count", len(modules), "destroyed", len(old), "duration", time.Since(start))
	return nil
}

// instance returns the mounted instance for route, mounting one on first use.
func (s *Service) instance(route string) (*docpage.Instance, error) {
	s.mu.RLock()
	inst, ok := s.instances[route]
	s.mu.RUnlock()
	if ok {
		return inst, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances[route]; ok {
		return inst, nil
	}
	mod, ok := s.modules[route]
	if !ok {
		return nil, ErrPageNotFound
	}
	inst = docpage.Mount(mod)
	s.instances[route] = inst
	s.metrics.IncMount()
	s.logger.Debug("mount", "route", route, "instance", inst.ID())
	return inst, nil
}

// resolveRoute maps a request path or relative markdown path onto a loaded route.
func (s *Service) resolveRoute(requestPath string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if isMarkdown(requestPath) {
		rel, err := normalizeRelPath(requestPath)
		if err != nil {
			return "", err
		}
		if route, ok := s.byRelPath[rel]; ok {
			return route, nil
		}
	}

	route := sanitizeRoute(requestPath)
	if _, ok := s.modules[route]; ok {
		return route, nil
	}
	if !strings.HasSuffix(route, "/") {
		if _, ok := s.modules[route+"/"]; ok {
			return route + "/", nil
		}
	}
	return "", ErrPageNotFound
}

// Render returns the content tree of the page at requestPath. A cancelled
// context aborts before any instance is mounted.
func (s *Service) Render(ctx context.Context, requestPath string) (*docpage.ContentTree, docpage.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, docpage.Metadata{}, err
	}
	route, err := s.resolveRoute(requestPath)
	if err != nil {
		return nil, docpage.Metadata{}, err
	}
	return s.renderRoute(route)
}

func (s *Service) renderRoute(route string) (*docpage.ContentTree, docpage.Metadata, error) {
	inst, err := s.instance(route)
	if err != nil {
		return nil, docpage.Metadata{}, err
	}
	return inst.Render(), inst.Metadata(), nil
}

// PageMetadata returns the metadata record of the page at requestPath.
func (s *Service) PageMetadata(requestPath string) (docpage.Metadata, error) {
	route, err := s.resolveRoute(requestPath)
	if err != nil {
		return docpage.Metadata{}, err
	}
	s.mu.RLock()
	mod, ok := s.modules[route]
	s.mu.RUnlock()
	if !ok {
		return docpage.Metadata{}, ErrPageNotFound
	}
	return mod.Metadata(), nil
}

// Pages lists the metadata of every loaded page ordered by route.
func (s *Service) Pages() []docpage.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]docpage.Metadata, 0, len(s.routes))
	for _, route := range s.routes {
		out = append(out, s.modules[route].Metadata())
	}
	return out
}

// SearchIndex returns a snapshot of the current search dataset.
func (s *Service) SearchIndex() json.RawMessage {
	payload := s.search.Snapshot()
	if len(payload) == 0 {
		return append(json.RawMessage(nil), emptySearchIndexJSON...)
	}
	return payload
}

// LoadedAt reports when bundles were last loaded.
func (s *Service) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *Service) snapshot() (map[string]*docpage.Module, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modules, append([]string(nil), s.routes...)
}
