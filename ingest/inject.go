package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/canvas/idgen"
	"github.com/hazyhaar/canvas/surface"
)

// Annotated is a body fragment whose content nodes carry stable ids.
type Annotated struct {
	DocumentID string
	Body       string
	// StableIDs lists every stable id in document order.
	StableIDs []string
	// Assigned counts ids derived during injection; the rest were present.
	Assigned int
}

// skipped nodes never receive a stable id. Their subtrees are not walked.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Link:     true,
	atom.Meta:     true,
	atom.Br:       true,
	atom.Wbr:      true,
	atom.Source:   true,
	atom.Track:    true,
}

// bodyContext is the parse context for body fragments.
func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// InjectStableIDs walks every element of body once, in document order, and
// gives each content node a stable id derived from documentID and its
// structural path (/body/div[2]/p[1]). Ids already present are kept. Each
// node is also stamped with the hash of its ingested text, so rendering
// can tell its own edits from edits to nested nodes.
func InjectStableIDs(body, documentID string) (Annotated, error) {
	nodes, err := html.ParseFragment(strings.NewReader(body), bodyContext())
	if err != nil {
		return Annotated{}, fmt.Errorf("ingest: parse body: %w", err)
	}
	out := Annotated{DocumentID: documentID}
	seen := make(map[string]bool)

	var walk func(n *html.Node, path string)
	walk = func(n *html.Node, path string) {
		if skipped[n.DataAtom] {
			return
		}
		id, ok := attrValue(n, surface.StableAttr)
		if !ok || id == "" || seen[id] {
			id = idgen.StableID(documentID, path)
			for seen[id] {
				id = idgen.StableID(documentID, path+"#"+id)
			}
			setAttr(n, surface.StableAttr, id)
			out.Assigned++
		}
		seen[id] = true
		setAttr(n, surface.TextAttr, surface.TextHash(textOf(n)))
		out.StableIDs = append(out.StableIDs, id)
		walkChildren(n, path, walk)
	}
	walkSiblings(nodes, "/body", walk)

	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return Annotated{}, fmt.Errorf("ingest: render body: %w", err)
		}
	}
	out.Body = b.String()
	return out, nil
}

// walkSiblings visits the element nodes of a sibling list with their
// positional paths. Positions count same-tag siblings from 1.
func walkSiblings(nodes []*html.Node, parent string, visit func(*html.Node, string)) {
	counts := make(map[string]int)
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		counts[n.Data]++
		visit(n, parent+"/"+n.Data+"["+strconv.Itoa(counts[n.Data])+"]")
	}
}

func walkChildren(n *html.Node, path string, visit func(*html.Node, string)) {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	walkSiblings(children, path, visit)
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
