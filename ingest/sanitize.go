// CLAUDE:SUMMARY Sanitizes cloned markup: bluemonday policy for the body, allow-listed head children, title extraction.
package ingest

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/canvas/surface"
)

// Document is sanitized markup split into its head and body fragments.
type Document struct {
	Title string
	Head  string
	Body  string
}

// Markup reassembles d into a full document.
func (d Document) Markup() string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head>")
	b.WriteString(d.Head)
	b.WriteString("</head><body>")
	b.WriteString(d.Body)
	b.WriteString("</body></html>")
	return b.String()
}

// bodyPolicy is built once; bluemonday policies are safe for concurrent
// use after construction.
var bodyPolicy = newBodyPolicy()

func newBodyPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowStandardAttributes()
	p.AllowDataAttributes()
	p.AllowImages()
	p.AllowLists()
	p.AllowTables()
	p.AllowAttrs("class", "role", "aria-label", "aria-hidden").Globally()
	p.AllowStyles(styleProperties...).Globally()

	p.AllowElements(
		"div", "section", "article", "aside", "header", "footer", "main", "nav",
		"h1", "h2", "h3", "h4", "h5", "h6", "p", "span", "blockquote", "pre", "code",
		"strong", "em", "b", "i", "u", "s", "small", "mark", "sub", "sup",
		"br", "hr", "figure", "figcaption", "picture", "label", "button",
	)
	p.AllowAttrs("href", "target").OnElements("a")
	p.AllowAttrs("type").OnElements("button")
	p.AllowElements("video", "source")
	p.AllowAttrs("src", "poster", "width", "height", "controls", "muted", "loop", "playsinline").OnElements("video")
	p.AllowAttrs("src", "srcset", "type", "media").OnElements("source")
	return p
}

// styleProperties lists the inline style properties kept on body nodes.
var styleProperties = []string{
	"color", "background", "background-color", "background-image",
	"font", "font-family", "font-size", "font-weight", "font-style", "line-height",
	"letter-spacing", "text-align", "text-decoration", "text-transform",
	"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
	"padding", "padding-top", "padding-right", "padding-bottom", "padding-left",
	"border", "border-radius", "border-color", "border-width", "border-style",
	"width", "height", "max-width", "min-height", "display", "gap",
	"flex", "flex-direction", "align-items", "justify-content",
	"opacity", "box-shadow",
}

// Sanitize strips executable content from raw and separates head and body.
// Scripts, event handler attributes and javascript: URLs never survive.
func Sanitize(raw string) (Document, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return Document{}, fmt.Errorf("ingest: parse: %w", err)
	}
	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)

	var out Document
	if head != nil {
		out.Title, out.Head, err = sanitizeHead(head)
		if err != nil {
			return Document{}, err
		}
	}
	if body != nil {
		inner, err := renderChildren(body)
		if err != nil {
			return Document{}, err
		}
		out.Body = strings.TrimSpace(bodyPolicy.Sanitize(inner))
	}
	return out, nil
}

// sanitizeHead keeps title, meta (except http-equiv), style and
// stylesheet links with a safe href.
func sanitizeHead(head *html.Node) (title, markup string, err error) {
	var b strings.Builder
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || !keepHeadNode(c) {
			continue
		}
		if c.DataAtom == atom.Title {
			title = surface.NormalizeText(textOf(c))
		}
		if err := html.Render(&b, c); err != nil {
			return "", "", fmt.Errorf("ingest: render head: %w", err)
		}
	}
	return title, b.String(), nil
}

func keepHeadNode(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Title:
		return true
	case atom.Meta:
		_, equiv := attrValue(n, "http-equiv")
		return !equiv
	case atom.Style:
		css := strings.ToLower(textOf(n))
		return !strings.Contains(css, "javascript:") && !strings.Contains(css, "expression(")
	case atom.Link:
		rel, _ := attrValue(n, "rel")
		href, _ := attrValue(n, "href")
		return strings.EqualFold(strings.TrimSpace(rel), "stylesheet") && safeHref(href)
	}
	return false
}

func safeHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if h == "" {
		return false
	}
	if i := strings.Index(h, ":"); i >= 0 && !strings.ContainsAny(h[:i], "/?#") {
		scheme := h[:i]
		return scheme == "http" || scheme == "https"
	}
	return true
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func renderChildren(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("ingest: render: %w", err)
		}
	}
	return b.String(), nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
