package ingest

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/canvas/scene"
	"github.com/hazyhaar/canvas/surface"
)

// ElementID is the id of the flow element hydrated for stableID.
func ElementID(stableID string) string { return "flow-" + stableID }

var typeByTag = map[string]scene.ElementType{
	"img":     scene.TypeImage,
	"picture": scene.TypeImage,
	"video":   scene.TypeVideo,

	"a":      scene.TypeButton,
	"button": scene.TypeButton,

	"h1": scene.TypeText, "h2": scene.TypeText, "h3": scene.TypeText,
	"h4": scene.TypeText, "h5": scene.TypeText, "h6": scene.TypeText,
	"p": scene.TypeText, "span": scene.TypeText, "strong": scene.TypeText,
	"em": scene.TypeText, "b": scene.TypeText, "i": scene.TypeText,
	"u": scene.TypeText, "s": scene.TypeText, "small": scene.TypeText,
	"mark": scene.TypeText, "sub": scene.TypeText, "sup": scene.TypeText,
	"label": scene.TypeText, "blockquote": scene.TypeText, "pre": scene.TypeText,
	"code": scene.TypeText, "li": scene.TypeText, "figcaption": scene.TypeText,
	"td": scene.TypeText, "th": scene.TypeText, "dt": scene.TypeText,
	"dd": scene.TypeText, "caption": scene.TypeText,

	"div": scene.TypeSection, "section": scene.TypeSection, "article": scene.TypeSection,
	"aside": scene.TypeSection, "header": scene.TypeSection, "footer": scene.TypeSection,
	"main": scene.TypeSection, "nav": scene.TypeSection, "ul": scene.TypeSection,
	"ol": scene.TypeSection, "dl": scene.TypeSection, "table": scene.TypeSection,
	"thead": scene.TypeSection, "tbody": scene.TypeSection, "tfoot": scene.TypeSection,
	"tr": scene.TypeSection, "figure": scene.TypeSection, "form": scene.TypeSection,
}

var typeByRole = map[string]scene.ElementType{
	"img":         scene.TypeImage,
	"button":      scene.TypeButton,
	"link":        scene.TypeButton,
	"heading":     scene.TypeText,
	"paragraph":   scene.TypeText,
	"region":      scene.TypeSection,
	"group":       scene.TypeSection,
	"banner":      scene.TypeSection,
	"main":        scene.TypeSection,
	"navigation":  scene.TypeSection,
	"contentinfo": scene.TypeSection,
	"list":        scene.TypeSection,
}

// InferType maps a tag and optional ARIA role to an element type. Role
// wins over tag; anything unrecognised is custom.
func InferType(tag, role string) scene.ElementType {
	if t, ok := typeByRole[strings.ToLower(strings.TrimSpace(role))]; ok {
		return t
	}
	if t, ok := typeByTag[strings.ToLower(tag)]; ok {
		return t
	}
	return scene.TypeCustom
}

// DeriveInitialElements emits one flow element per annotated node, in
// document order. Unknown tags degrade to custom elements.
func DeriveInitialElements(annotated string) ([]scene.Element, error) {
	nodes, err := html.ParseFragment(strings.NewReader(annotated), bodyContext())
	if err != nil {
		return nil, fmt.Errorf("ingest: parse annotated body: %w", err)
	}
	var out []scene.Element
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && !skipped[n.DataAtom] {
			if id, ok := attrValue(n, surface.StableAttr); ok && id != "" && !seen[id] {
				seen[id] = true
				out = append(out, derive(n, id))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out, nil
}

func derive(n *html.Node, stableID string) scene.Element {
	role, _ := attrValue(n, "role")
	t := InferType(n.Data, role)
	return scene.Element{
		ID:       ElementID(stableID),
		StableID: stableID,
		Type:     t,
		Mode:     scene.ModeFlow,
		Content:  contentOf(n, t),
	}
}

// contentOf extracts the minimal content for t. Sections and custom nodes
// keep their markup in the document and carry no content.
func contentOf(n *html.Node, t scene.ElementType) scene.Content {
	switch t {
	case scene.TypeText:
		return scene.TextContent{Text: surface.NormalizeText(textOf(n))}
	case scene.TypeButton:
		href, _ := attrValue(n, "href")
		return scene.LinkContent{Href: href, Label: surface.NormalizeText(textOf(n))}
	case scene.TypeImage:
		img := n
		if n.DataAtom != atom.Img {
			if inner := findElement(n, atom.Img); inner != nil {
				img = inner
			}
		}
		src, _ := attrValue(img, "src")
		alt, _ := attrValue(img, "alt")
		if alt == "" {
			alt, _ = attrValue(n, "aria-label")
		}
		return scene.MediaContent{Src: src, Alt: alt}
	case scene.TypeVideo:
		src, _ := attrValue(n, "src")
		if src == "" {
			if s := findElement(n, atom.Source); s != nil {
				src, _ = attrValue(s, "src")
			}
		}
		poster, _ := attrValue(n, "poster")
		return scene.MediaContent{Src: src, Poster: poster}
	}
	return nil
}
