package site

import (
	"strings"

	"github.com/iedon/docpage-go/renderer"
	"github.com/iedon/docpage-go/templatex"
)

// buildBreadcrumbs links every folder of route to its section on the
// directory page. Directory index routes end with a slash.
func buildBreadcrumbs(route, title, base string) []templatex.Breadcrumb {
	rootHref := directoryPageHref(base)

	crumbs := make([]templatex.Breadcrumb, 0, 4)
	crumbs = append(crumbs, templatex.Breadcrumb{Title: directoryPageTitle, Path: rootHref})

	normRoute := strings.Trim(route, "/")
	if normRoute == "" {
		return append(crumbs, templatex.Breadcrumb{Title: title, Current: true})
	}

	segments := strings.Split(normRoute, "/")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if i == len(segments)-1 {
			crumbs = append(crumbs, templatex.Breadcrumb{Title: title, Current: true})
			continue
		}
		folder := renderer.DeriveTitle(segment)
		crumb := templatex.Breadcrumb{Title: folder, Path: rootHref}
		if anchor := breadcrumbAnchor(folder); anchor != "" {
			crumb.Path = rootHref + "#" + anchor
		}
		crumbs = append(crumbs, crumb)
	}
	return crumbs
}
