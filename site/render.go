package site

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/iedon/docpage-go/docpage"
	"github.com/iedon/docpage-go/templatex"
)

// RenderFullPage renders the page at requestPath inside the site layout and
// minifies the result.
func (s *Service) RenderFullPage(ctx context.Context, requestPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	route := sanitizeRoute(requestPath)
	if route == directoryPageRoute {
		return s.renderDocument(s.directoryPageData())
	}

	resolved, err := s.resolveRoute(requestPath)
	if err != nil {
		return nil, err
	}
	tree, meta, err := s.renderRoute(resolved)
	if err != nil {
		return nil, err
	}
	return s.renderDocument(s.pageData(resolved, meta, tree))
}

// RenderNotFoundPage renders a themed 404 page.
func (s *Service) RenderNotFoundPage(requestedPath string) ([]byte, error) {
	title := "404 - Not found"
	sanitized := strings.TrimSpace(requestedPath)
	if sanitized != "" {
		sanitized = sanitizeRoute(sanitized)
	}
	description := "The page you are looking for could not be found."
	if sanitized != "" && sanitized != "/" {
		description = fmt.Sprintf("The requested path %s could not be found.", sanitized)
	}

	data := &templatex.PageData{
		Title:           title,
		PageTitle:       s.pageTitle(title),
		SiteName:        s.siteName(),
		ContentTemplate: templatex.NotFoundContentTemplate,
		RequestedPath:   sanitized,
		SearchIndexURL:  s.searchIndexURL(),
		BaseURL:         s.cfg.BaseURL,
	}
	data.Meta = s.buildMeta(description, description, "website")
	return s.renderDocument(data)
}

func (s *Service) renderDocument(data *templatex.PageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.Render(&buf, data); err != nil {
		return nil, err
	}
	return s.minifier.MinifyHTML(buf.Bytes())
}

func (s *Service) pageData(route string, meta docpage.Metadata, tree *docpage.ContentTree) *templatex.PageData {
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = "Untitled"
	}

	var lastUpdatedISO, lastUpdated string
	if meta.LastUpdated != nil && !meta.LastUpdated.IsZero() {
		lastUpdatedISO = meta.LastUpdated.UTC().Format(time.RFC3339)
		lastUpdated = meta.LastUpdated.UTC().Format("Jan 2 15:04:05 MST 2006")
	}

	data := &templatex.PageData{
		Title:          title,
		PageTitle:      s.pageTitle(title),
		SiteName:       s.siteName(),
		ContentHTML:    tree.HTML(),
		Headers:        tocEntries(meta.Headers),
		ActivePath:     route,
		RequestedPath:  route,
		SearchIndexURL: s.searchIndexURL(),
		BaseURL:        s.cfg.BaseURL,
		Breadcrumbs:    buildBreadcrumbs(route, title, s.cfg.BaseURL),
		LastUpdatedISO: lastUpdatedISO,
		LastUpdated:    lastUpdated,
	}
	summary := meta.Description
	if strings.TrimSpace(summary) == "" {
		summary = summarize(tree.PlainText())
	}
	data.Meta = s.buildMeta(summary, title, "article")
	return data
}

func (s *Service) directoryPageData() *templatex.PageData {
	modules, routes := s.snapshot()
	data := &templatex.PageData{
		Title:           directoryPageTitle,
		PageTitle:       s.pageTitle(directoryPageTitle),
		SiteName:        s.siteName(),
		ContentTemplate: templatex.DirectoryContentTemplate,
		ActivePath:      directoryPageRoute,
		RequestedPath:   directoryPageRoute,
		SearchIndexURL:  s.searchIndexURL(),
		BaseURL:         s.cfg.BaseURL,
		Breadcrumbs: []templatex.Breadcrumb{
			{Title: directoryPageTitle, Current: true},
		},
		Directory: directoryEntries(modules, routes, s.cfg.BaseURL),
	}
	data.Meta = s.buildMeta("Browse the complete documentation index.", directoryPageTitle, "website")
	return data
}

func tocEntries(headers []docpage.Header) []templatex.TOCEntry {
	if len(headers) == 0 {
		return nil
	}
	out := make([]templatex.TOCEntry, 0, len(headers))
	for _, h := range headers {
		out = append(out, templatex.TOCEntry{
			ID:       h.Slug,
			Text:     h.Title,
			Level:    h.Level,
			Children: tocEntries(h.Children),
		})
	}
	return out
}

func (s *Service) searchIndexURL() string {
	return path.Join("/", s.cfg.BaseURL, "search-index.json")
}

func (s *Service) buildMeta(summary, fallback, ogType string) templatex.Meta {
	if ogType == "" {
		ogType = "website"
	}
	description := metaDescription(summary, fallback)
	if description == "" {
		description = s.siteName()
	}
	return templatex.Meta{
		Description:   description,
		OpenGraphType: ogType,
		OpenGraphSite: s.siteName(),
	}
}

func (s *Service) siteName() string {
	name := strings.TrimSpace(s.cfg.SiteName)
	if name == "" {
		return "Untitled"
	}
	return name
}

func (s *Service) pageTitle(raw string) string {
	title := strings.TrimSpace(raw)
	site := s.siteName()
	if title == "" {
		return site
	}
	return fmt.Sprintf("%s - %s", title, site)
}
