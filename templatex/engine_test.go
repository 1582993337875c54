package templatex

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLayout_RendersContentAndOutline(t *testing.T) {
	engine, err := Load("")
	require.NoError(t, err)

	var buf bytes.Buffer
	err = engine.Render(&buf, &PageData{
		Title:       "Optimization Extension",
		PageTitle:   "Optimization Extension - Docs",
		SiteName:    "Docs",
		ContentHTML: "<h1>A</h1><p>B</p>",
		Headers: []TOCEntry{
			{ID: "example", Text: "Example", Level: 2, Children: []TOCEntry{{ID: "details", Text: "Details", Level: 3}}},
		},
		ActivePath: "/ext/optimization",
	})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "<title>Optimization Extension - Docs</title>")
	require.Contains(t, out, "<article><h1>A</h1><p>B</p></article>")
	require.Contains(t, out, `href="#details"`)
}

func TestDefaultLayout_NotFound(t *testing.T) {
	engine, err := Load("")
	require.NoError(t, err)

	var buf bytes.Buffer
	data := &PageData{
		Title:           "404 - Not found",
		ContentTemplate: NotFoundContentTemplate,
		Meta:            Meta{Description: "The requested path /x could not be found."},
		ContentHTML:     "<p>should not render</p>",
	}
	require.NoError(t, engine.Render(&buf, data))
	require.Contains(t, buf.String(), "could not be found")
	require.NotContains(t, buf.String(), "should not render")
}

func TestLoad_CustomDirRequiresLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte(`{{define "other"}}x{{end}}`), 0o644))

	_, err := Load(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "layout.html"), []byte(`{{define "layout"}}{{.Title}}{{end}}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	engine, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "assets"), engine.StaticDir)

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf, &PageData{Title: "T"}))
	require.Equal(t, "T", buf.String())
}

func TestLoad_EmptyDir(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}
