package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteFromPath(t *testing.T) {
	cases := map[string]string{
		"index.md":            "/",
		"Home.md":             "/",
		"guide/index.md":      "/guide/",
		"ext/optimization.md": "/ext/optimization",
		"a/b/c.md":            "/a/b/c",
	}
	for in, want := range cases {
		assert.Equal(t, want, routeFromPath(in, "Home.md"), in)
	}
}

func TestSanitizeRoute(t *testing.T) {
	cases := map[string]string{
		"":                       "/",
		"/":                      "/",
		"ext/optimization":       "/ext/optimization",
		"/ext/optimization.html": "/ext/optimization",
		"/ext/optimization.md":   "/ext/optimization",
		"/guide/":                "/guide/",
		"/guide/index.html":      "/guide/",
		"/a/../b":                "/b",
		"/index.html":            "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeRoute(in), in)
	}
}

func TestHTMLPathFrom(t *testing.T) {
	assert.Equal(t, "index.html", htmlPathFrom("/"))
	assert.Equal(t, "guide/index.html", htmlPathFrom("/guide/"))
	assert.Equal(t, "ext/optimization.html", htmlPathFrom("/ext/optimization"))
}

func TestNormalizeRelPath(t *testing.T) {
	rel, err := normalizeRelPath("/ext/optimization")
	require.NoError(t, err)
	assert.Equal(t, "ext/optimization.md", rel)

	rel, err = normalizeRelPath(`ext\optimization.md`)
	require.NoError(t, err)
	assert.Equal(t, "ext/optimization.md", rel)

	for _, bad := range []string{"", "../secret.md", "a/../../b.md", "a\x00b.md"} {
		_, err := normalizeRelPath(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestIsIgnorable(t *testing.T) {
	assert.True(t, isIgnorable("docs/.git"))
	assert.True(t, isIgnorable("node_modules"))
	assert.False(t, isIgnorable("docs/guide.md"))
}

func TestBuildBreadcrumbs(t *testing.T) {
	crumbs := buildBreadcrumbs("/guide/setup", "Setup", "")
	require.Len(t, crumbs, 3)
	assert.Equal(t, directoryPageTitle, crumbs[0].Title)
	assert.Equal(t, "/directory", crumbs[0].Path)
	assert.Equal(t, "guide", crumbs[1].Title)
	assert.Equal(t, "/directory#guide", crumbs[1].Path)
	assert.Equal(t, "Setup", crumbs[2].Title)
	assert.True(t, crumbs[2].Current)

	crumbs = buildBreadcrumbs("/guide/", "Guide", "docs")
	require.Len(t, crumbs, 2)
	assert.Equal(t, "/docs/directory", crumbs[0].Path)
	assert.True(t, crumbs[1].Current)

	crumbs = buildBreadcrumbs("/", "Home", "")
	require.Len(t, crumbs, 2)
	assert.Equal(t, "Home", crumbs[1].Title)
}

func TestResolveDirectoryURL(t *testing.T) {
	assert.Equal(t, "/", resolveDirectoryURL("", "/"))
	assert.Equal(t, "/guide/", resolveDirectoryURL("", "/guide/"))
	assert.Equal(t, "/docs/a", resolveDirectoryURL("/docs/", "/a"))
	assert.Equal(t, "/docs/", resolveDirectoryURL("docs", ""))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "", summarize("  "))
	assert.Equal(t, "short", summarize(" short "))

	long := make([]rune, 250)
	for i := range long {
		long[i] = 'é'
	}
	got := []rune(summarize(string(long)))
	assert.Len(t, got, 203)
}
