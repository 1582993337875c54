package site

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/iedon/docpage-go/docpage"
)

const (
	searchIndexVersion = 4
	maxPositionsPerDoc = 48
)

// Indexed fields, in the order their frequencies appear in a posting.
const (
	fieldTitle = iota
	fieldHeaders
	fieldSummary
	fieldContent
	fieldCount
)

var (
	searchIndexFields    = []string{"title", "headers", "summary", "content"}
	emptySearchIndexJSON = json.RawMessage(`{"v":4,"c":0,"f":["title","headers","summary","content"],"a":[0,0,0,0],"d":[],"s":[],"t":{}}`)
)

// searchSection is one entry of a page outline, linked as route#slug.
type searchSection struct {
	Slug  string
	Title string
}

// searchEntry is the per-page input of the search index.
type searchEntry struct {
	Route     string
	Title     string
	Summary   string
	PlainText string
	Sections  []searchSection
}

// searchEntries derives index input from page metadata and body text. Bodies
// are rendered into throwaway slots so no page instance is mounted.
func searchEntries(modules map[string]*docpage.Module, routes []string) []searchEntry {
	entries := make([]searchEntry, 0, len(routes))
	for _, route := range routes {
		mod := modules[route]
		meta := mod.Metadata()
		var slot docpage.Slot
		plain := docpage.NewRenderer(mod.Name(), mod.Fragment()).Render(&slot).PlainText()
		summary := strings.TrimSpace(meta.Description)
		if summary == "" {
			summary = summarize(plain)
		}
		entries = append(entries, searchEntry{
			Route:     route,
			Title:     meta.Title,
			Summary:   summary,
			PlainText: plain,
			Sections:  flattenSections(meta.Headers, nil),
		})
	}
	return entries
}

func flattenSections(headers []docpage.Header, out []searchSection) []searchSection {
	for _, h := range headers {
		if h.Slug != "" && strings.TrimSpace(h.Title) != "" {
			out = append(out, searchSection{Slug: h.Slug, Title: h.Title})
		}
		out = flattenSections(h.Children, out)
	}
	return out
}

// posting records how one term occurs in one document. sections lists the
// outline entries whose titles contain the term.
type posting struct {
	doc       int
	freq      [fieldCount]int
	positions []int
	sections  []int
}

type searchIndexPayload struct {
	Version         int               `json:"v"`
	DocCount        int               `json:"c"`
	Fields          []string          `json:"f"`
	AvgFieldLengths []int             `json:"a"`
	Docs            [][]string        `json:"d"`
	Sections        [][][2]string     `json:"s"`
	Terms           map[string]string `json:"t"`
}

type searchIndexBuilder struct {
	docs     [][]string
	sections [][][2]string
	postings map[string][]*posting
	totals   [fieldCount]int
}

func buildSearchIndex(pages []searchEntry) (json.RawMessage, error) {
	if len(pages) == 0 {
		return append(json.RawMessage(nil), emptySearchIndexJSON...), nil
	}
	b := &searchIndexBuilder{postings: make(map[string][]*posting, len(pages)*16)}
	for _, pg := range pages {
		b.add(pg)
	}
	return b.encode()
}

func (b *searchIndexBuilder) add(pg searchEntry) {
	docID := len(b.docs)
	terms := make(map[string]*posting, 64)
	lookup := func(token string) *posting {
		p := terms[token]
		if p == nil {
			p = &posting{doc: docID}
			terms[token] = p
		}
		return p
	}

	var lengths [fieldCount]int
	lengths[fieldTitle] = tokenize(pg.Title, func(token string, _ int) {
		lookup(token).freq[fieldTitle]++
	})

	outline := make([][2]string, 0, len(pg.Sections))
	for i, sec := range pg.Sections {
		outline = append(outline, [2]string{sec.Slug, sec.Title})
		lengths[fieldHeaders] += tokenize(sec.Title, func(token string, _ int) {
			p := lookup(token)
			p.freq[fieldHeaders]++
			if n := len(p.sections); n == 0 || p.sections[n-1] != i {
				p.sections = append(p.sections, i)
			}
		})
	}

	lengths[fieldSummary] = tokenize(pg.Summary, func(token string, _ int) {
		lookup(token).freq[fieldSummary]++
	})
	lengths[fieldContent] = tokenize(pg.PlainText, func(token string, pos int) {
		p := lookup(token)
		p.freq[fieldContent]++
		if len(p.positions) < maxPositionsPerDoc {
			p.positions = append(p.positions, pos)
		}
	})

	lens := make([]string, fieldCount)
	for i, n := range lengths {
		lens[i] = base36(n)
		b.totals[i] += n
	}
	b.docs = append(b.docs, []string{pg.Route, pg.Title, pg.Summary, strings.Join(lens, ",")})
	b.sections = append(b.sections, outline)

	// Documents are added in order, so every posting list stays sorted by doc.
	for term, p := range terms {
		b.postings[term] = append(b.postings[term], p)
	}
}

func (b *searchIndexBuilder) encode() (json.RawMessage, error) {
	count := len(b.docs)
	avg := make([]int, fieldCount)
	for i, total := range b.totals {
		avg[i] = int(math.Round(float64(total*100) / float64(count)))
	}

	terms := make(map[string]string, len(b.postings))
	for term, list := range b.postings {
		encoded := make([]string, len(list))
		for i, p := range list {
			encoded[i] = p.encode()
		}
		terms[term] = base36(len(list)) + "|" + strings.Join(encoded, ";")
	}

	data, err := json.Marshal(searchIndexPayload{
		Version:         searchIndexVersion,
		DocCount:        count,
		Fields:          append([]string(nil), searchIndexFields...),
		AvgFieldLengths: avg,
		Docs:            b.docs,
		Sections:        b.sections,
		Terms:           terms,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// encode renders doc:title:headers:summary:content, then delta-coded content
// positions after ':' and outline indexes after '@'. Numbers are base 36.
func (p *posting) encode() string {
	var sb strings.Builder
	sb.WriteString(base36(p.doc))
	for _, f := range p.freq {
		sb.WriteByte(':')
		sb.WriteString(base36(f))
	}
	if len(p.positions) > 0 {
		sb.WriteByte(':')
		prev := 0
		for i, pos := range p.positions {
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(base36(pos - prev))
			prev = pos
		}
	}
	if len(p.sections) > 0 {
		sb.WriteByte('@')
		for i, idx := range p.sections {
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(base36(idx))
		}
	}
	return sb.String()
}

// tokenize folds text to lower-case letters and digits without diacritics
// and calls emit for every indexable token with its position. It returns the
// number of tokens emitted.
func tokenize(text string, emit func(token string, pos int)) int {
	if text == "" {
		return 0
	}
	folded := strings.Map(func(r rune) rune {
		switch {
		case unicode.Is(unicode.Mn, r):
			return -1
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, norm.NFKD.String(text))

	n := 0
	for _, token := range strings.Fields(folded) {
		if len(token) == 1 && (token[0] < '0' || token[0] > '9') {
			continue
		}
		emit(token, n)
		n++
	}
	return n
}

func base36(v int) string {
	return strconv.FormatInt(int64(v), 36)
}
