package site

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iedon/docpage-go/bundle"
	"github.com/iedon/docpage-go/config"
	"github.com/iedon/docpage-go/docpage"
	"github.com/iedon/docpage-go/templatex"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.SourceDir = filepath.Join(root, "docs")
	cfg.BundleDir = filepath.Join(root, "bundles")
	cfg.OutputDir = filepath.Join(root, "dist")
	cfg.SiteName = "Docs"
	minify := false
	cfg.Minify = &minify
	return cfg
}

func writeBundle(t *testing.T, dir, rel, title string, segments ...string) {
	t.Helper()
	meta := docpage.Metadata{Title: title, RelativePath: rel, FilePath: rel}
	require.NoError(t, bundle.Write(dir, bundle.FromModule(docpage.NewModule(meta, docpage.NewFragment(segments...)))))
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	templates, err := templatex.Load("")
	require.NoError(t, err)
	svc := NewService(cfg, templates, nil, nil)
	require.NoError(t, svc.Reload(context.Background()))
	return svc
}

func seedBundles(t *testing.T, cfg *config.Config) {
	t.Helper()
	writeBundle(t, cfg.BundleDir, "index.md", "Home", "<h1>Home</h1>", "<p>Welcome</p>")
	writeBundle(t, cfg.BundleDir, "ext/optimization.md", "Optimization Extension", "<h1>A</h1>", "<p>B</p>")
	writeBundle(t, cfg.BundleDir, "guide/index.md", "Guide", "<h1>Guide</h1>")
}

func TestService_RenderCachesPerInstance(t *testing.T) {
	cfg := testConfig(t)
	seedBundles(t, cfg)
	svc := newTestService(t, cfg)
	ctx := context.Background()

	first, meta, err := svc.Render(ctx, "/ext/optimization")
	require.NoError(t, err)
	assert.Equal(t, "<h1>A</h1><p>B</p>", first.String())
	assert.Equal(t, "Optimization Extension", meta.Title)

	second, _, err := svc.Render(ctx, "ext/optimization.md")
	require.NoError(t, err)
	assert.Same(t, first, second)

	inst := svc.instances["/ext/optimization"]
	require.NotNil(t, inst)
	assert.True(t, inst.Cached())
}

func TestService_RenderHonorsCancellation(t *testing.T) {
	cfg := testConfig(t)
	seedBundles(t, cfg)
	svc := newTestService(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.Render(ctx, "/ext/optimization")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.RenderFullPage(ctx, "/ext/optimization")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.RenderFullPage(ctx, "/directory")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, svc.instances)
}

func TestService_ReloadDestroysInstances(t *testing.T) {
	cfg := testConfig(t)
	seedBundles(t, cfg)
	svc := newTestService(t, cfg)
	ctx := context.Background()

	before, _, err := svc.Render(ctx, "/ext/optimization")
	require.NoError(t, err)
	inst := svc.instances["/ext/optimization"]

	writeBundle(t, cfg.BundleDir, "ext/optimization.md", "Optimization Extension", "<h1>A2</h1>")
	require.NoError(t, svc.Reload(ctx))
	assert.False(t, inst.Cached())

	after, _, err := svc.Render(ctx, "/ext/optimization")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, "<h1>A2</h1>", after.String())
	assert.NotEqual(t, inst.ID(), svc.instances["/ext/optimization"].ID())
}

func TestService_ResolveRoute(t *testing.T) {
	cfg := testConfig(t)
	seedBundles(t, cfg)
	svc := newTestService(t, cfg)

	cases := map[string]string{
		"/":                      "/",
		"index.md":               "/",
		"/ext/optimization":      "/ext/optimization",
		"/ext/optimization.html": "/ext/optimization",
		"ext/optimization.md":    "/ext/optimization",
		"/guide":                 "/guide/",
		"/guide/":                "/guide/",
		"guide/index.md":         "/guide/",
	}
	for in, want := range cases {
		got, err := svc.resolveRoute(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := svc.resolveRoute("/missing")
	assert.ErrorIs(t, err, ErrPageNotFound)
	_, err = svc.resolveRoute("../escape.md")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestService_MetadataAndPages(t *testing.T) {
	cfg := testConfig(t)
	seedBundles(t, cfg)
	svc := newTestService(t, cfg)

	meta, err := svc.PageMetadata("ext/optimization.md")
	require.NoError(t, err)
	assert.Equal(t, "ext/optimization.md", meta.RelativePath)

	meta.Title = "changed"
	again, err := svc.PageMetadata("/ext/optimization")
	require.NoError(t, err)
	assert.Equal(t, "Optimization Extension", again.Title)

	pages := svc.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, "index.md", pages[0].RelativePath)
	assert.Equal(t, "ext/optimization.md", pages[1].RelativePath)
	assert.Equal(t, "guide/index.md", pages[2].RelativePath)
	assert.False(t, svc.LoadedAt().IsZero())
}

func TestService_DuplicateRouteKeepsFirst(t *testing.T) {
	cfg := testConfig(t)
	cfg.HomeDoc = "Home.md"
	writeBundle(t, cfg.BundleDir, "Home.md", "Home page", "<p>home</p>")
	writeBundle(t, cfg.BundleDir, "index.md", "Index", "<p>index</p>")
	svc := newTestService(t, cfg)

	require.Len(t, svc.Pages(), 1)
	tree, _, err := svc.Render(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "<p>home</p>", tree.String())
}

func TestService_MissingBundleDir(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg)

	assert.Empty(t, svc.Pages())
	assert.JSONEq(t, string(emptySearchIndexJSON), string(svc.SearchIndex()))

	_, _, err := svc.Render(context.Background(), "/")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestService_InvalidBundleFailsReload(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.BundleDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.BundleDir, "bad.md.json"), []byte(`{"name":"bad.md"}`), 0o644))

	templates, err := templatex.Load("")
	require.NoError(t, err)
	svc := NewService(cfg, templates, nil, nil)
	err = svc.Reload(context.Background())
	assert.ErrorIs(t, err, bundle.ErrInvalidBundle)
}

func TestService_SearchIndex(t *testing.T) {
	cfg := testConfig(t)
	seedBundles(t, cfg)
	svc := newTestService(t, cfg)

	var payload struct {
		Count int               `json:"c"`
		Docs  [][]string        `json:"d"`
		Terms map[string]string `json:"t"`
	}
	require.NoError(t, json.Unmarshal(svc.SearchIndex(), &payload))
	assert.Equal(t, 3, payload.Count)
	require.Len(t, payload.Docs, 3)
	assert.Equal(t, "/", payload.Docs[0][0])
	assert.Equal(t, "Home", payload.Docs[0][1])
	assert.Contains(t, payload.Terms, "optimization")
	assert.Contains(t, payload.Terms, "welcome")

	// indexing does not mount instances
	assert.Empty(t, svc.instances)
}

type indexPosting struct {
	doc      int
	freq     []int
	sections []int
}

func parseBase36(t *testing.T, s string) int {
	t.Helper()
	v, err := strconv.ParseInt(s, 36, 64)
	require.NoError(t, err, s)
	return int(v)
}

func decodePostings(t *testing.T, raw string) []indexPosting {
	t.Helper()
	count, list, ok := strings.Cut(raw, "|")
	require.True(t, ok, raw)
	var out []indexPosting
	for _, item := range strings.Split(list, ";") {
		body, secs, _ := strings.Cut(item, "@")
		parts := strings.Split(body, ":")
		require.GreaterOrEqual(t, len(parts), 1+fieldCount, item)
		p := indexPosting{doc: parseBase36(t, parts[0])}
		for _, f := range parts[1 : 1+fieldCount] {
			p.freq = append(p.freq, parseBase36(t, f))
		}
		if secs != "" {
			for _, idx := range strings.Split(secs, ".") {
				p.sections = append(p.sections, parseBase36(t, idx))
			}
		}
		out = append(out, p)
	}
	require.Len(t, out, parseBase36(t, count))
	return out
}

func TestService_SearchIndexHeaders(t *testing.T) {
	cfg := testConfig(t)
	seedBundles(t, cfg)
	meta := docpage.Metadata{
		Title:        "Optimization Extension",
		RelativePath: "ext/optimization.md",
		FilePath:     "ext/optimization.md",
		Headers: []docpage.Header{{
			Level: 2, Title: "Example", Slug: "example", Link: "#example",
			Children: []docpage.Header{{Level: 3, Title: "Tuning knobs", Slug: "tuning-knobs", Link: "#tuning-knobs"}},
		}},
	}
	mod := docpage.NewModule(meta, docpage.NewFragment(
		"<h1>Optimization Extension</h1>",
		`<h2 id="example">Example</h2>`,
		`<h3 id="tuning-knobs">Tuning knobs</h3>`,
		"<p>Pick a solver.</p>",
	))
	require.NoError(t, bundle.Write(cfg.BundleDir, bundle.FromModule(mod)))
	svc := newTestService(t, cfg)

	var payload struct {
		Docs     [][]string        `json:"d"`
		Sections [][][2]string     `json:"s"`
		Terms    map[string]string `json:"t"`
	}
	require.NoError(t, json.Unmarshal(svc.SearchIndex(), &payload))
	require.Len(t, payload.Sections, 3)
	assert.Empty(t, payload.Sections[0])
	assert.Equal(t, [][2]string{{"example", "Example"}, {"tuning-knobs", "Tuning knobs"}}, payload.Sections[1])

	knobs := decodePostings(t, payload.Terms["knobs"])
	require.Len(t, knobs, 1)
	hit := knobs[0]
	assert.Equal(t, 1, hit.freq[fieldHeaders])
	assert.Equal(t, 0, hit.freq[fieldTitle])
	require.Equal(t, []int{1}, hit.sections)
	section := payload.Sections[hit.doc][hit.sections[0]]
	assert.Equal(t, "/ext/optimization#tuning-knobs", payload.Docs[hit.doc][0]+"#"+section[0])
	assert.Equal(t, "Tuning knobs", section[1])

	solver := decodePostings(t, payload.Terms["solver"])
	require.Len(t, solver, 1)
	assert.Equal(t, 0, solver[0].freq[fieldHeaders])
	assert.Equal(t, 1, solver[0].freq[fieldContent])
	assert.Empty(t, solver[0].sections)
}

func TestService_RenderFullPage(t *testing.T) {
	cfg := testConfig(t)
	seedBundles(t, cfg)
	svc := newTestService(t, cfg)
	ctx := context.Background()

	page, err := svc.RenderFullPage(ctx, "/ext/optimization")
	require.NoError(t, err)
	out := string(page)
	assert.Contains(t, out, "<title>Optimization Extension - Docs</title>")
	assert.Contains(t, out, "<article><h1>A</h1><p>B</p></article>")
	assert.Contains(t, out, `href="/directory#ext"`)

	dir, err := svc.RenderFullPage(ctx, "/directory")
	require.NoError(t, err)
	assert.Contains(t, string(dir), `href="/ext/optimization"`)
	assert.Contains(t, string(dir), `href="/guide/"`)

	_, err = svc.RenderFullPage(ctx, "/nope")
	assert.ErrorIs(t, err, ErrPageNotFound)

	notFound, err := svc.RenderNotFoundPage("/nope")
	require.NoError(t, err)
	assert.Contains(t, string(notFound), "The requested path /nope could not be found.")
}

func TestDirectoryEntries(t *testing.T) {
	cfg := testConfig(t)
	seedBundles(t, cfg)
	writeBundle(t, cfg.BundleDir, "ext/routing.md", "Routing", "<p>r</p>")
	svc := newTestService(t, cfg)

	modules, routes := svc.snapshot()
	entries := directoryEntries(modules, routes, "")
	require.Len(t, entries, 3)

	assert.Equal(t, "ext", entries[0].Title)
	assert.Equal(t, 2, entries[0].Count)
	require.Len(t, entries[0].Children, 2)
	assert.Equal(t, "Optimization Extension", entries[0].Children[0].Title)
	assert.Equal(t, "/ext/optimization", entries[0].Children[0].URL)
	assert.Equal(t, "Routing", entries[0].Children[1].Title)

	assert.Equal(t, "guide", entries[1].Title)
	assert.Equal(t, "Guide", entries[1].Children[0].Title)
	assert.Equal(t, "Home", entries[2].Title)
	assert.Equal(t, "/", entries[2].URL)
}
