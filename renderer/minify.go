package renderer

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// Minifier compacts full HTML documents before they are written out.
type Minifier struct {
	m       *minify.M
	enabled bool
}

// NewMinifier returns a Minifier. A disabled Minifier returns its input unchanged.
func NewMinifier(enabled bool) *Minifier {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	return &Minifier{m: m, enabled: enabled}
}

// MinifyHTML optimizes raw HTML markup.
func (mf *Minifier) MinifyHTML(raw []byte) ([]byte, error) {
	if mf == nil || !mf.enabled {
		return raw, nil
	}
	return mf.m.Bytes("text/html", raw)
}
