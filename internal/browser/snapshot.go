package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a read-only parsed copy of a rendered page.
type Snapshot struct {
	doc *goquery.Document
}

// NewSnapshot parses the outer HTML of a document.
func NewSnapshot(html string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page snapshot: %w", err)
	}
	return &Snapshot{doc: doc}, nil
}

// FindAll returns every element in the snapshot matching loc.
func (s *Snapshot) FindAll(loc Locator) []Element {
	var elems []Element
	s.doc.Find(loc.CSS()).Each(func(_ int, sel *goquery.Selection) {
		elems = append(elems, &snapshotElement{sel: sel})
	})
	return elems
}

type snapshotElement struct {
	sel *goquery.Selection
}

func (e *snapshotElement) Find(_ context.Context, loc Locator) (Element, error) {
	found := e.sel.Find(loc.CSS()).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", loc, ErrElementNotFound)
	}
	return &snapshotElement{sel: found}, nil
}

// Text approximates the element's rendered text the way a browser's
// innerText does for static markup.
func (e *snapshotElement) Text(_ context.Context) (string, error) {
	return RenderedText(e.sel), nil
}

var (
	unrenderedTags = map[string]bool{
		"script": true, "style": true, "noscript": true, "template": true, "head": true,
	}
	blockTags = map[string]bool{
		"address": true, "article": true, "aside": true, "blockquote": true,
		"dd": true, "div": true, "dl": true, "dt": true, "footer": true,
		"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
		"h6": true, "header": true, "li": true, "ol": true, "p": true,
		"section": true, "table": true, "tr": true, "ul": true,
	}
)

// RenderedText returns the visible text of sel: <br> and block boundaries
// become line breaks, whitespace runs collapse to one space, and script,
// style and inline-hidden content is skipped. Empty lines are dropped.
func RenderedText(sel *goquery.Selection) string {
	var b strings.Builder
	writeRendered(&b, sel.Contents())

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func writeRendered(b *strings.Builder, nodes *goquery.Selection) {
	nodes.Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			b.WriteString(s.Text())
		case name == "br":
			b.WriteByte('\n')
		case name == "td" || name == "th":
			writeRendered(b, s.Contents())
			b.WriteByte('\t')
		case strings.HasPrefix(name, "#"), unrenderedTags[name], hidden(s):
		case blockTags[name]:
			b.WriteByte('\n')
			writeRendered(b, s.Contents())
			b.WriteByte('\n')
		default:
			writeRendered(b, s.Contents())
		}
	})
}

func hidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	style := strings.ToLower(strings.Join(strings.Fields(s.AttrOr("style", "")), ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
