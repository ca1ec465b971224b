package mutation

import (
	"strconv"

	"github.com/hazyhaar/canvas/scene"
)

// HTMLHashAttr stores HashHTML of the markup last written to a canvas node.
const HTMLHashAttr = "data-canvas-html"

// TagFor returns the element tag used to render an absolute element.
func TagFor(t scene.ElementType) string {
	switch t {
	case scene.TypeImage:
		return "img"
	case scene.TypeVideo:
		return "video"
	case scene.TypeButton:
		return "a"
	case scene.TypeSection:
		return "section"
	default:
		return "div"
	}
}

// Compile derives the records that render elements at breakpoint bp.
// elements must be in paint order; known lists the stable ids present on
// the surface. The result:
//   - creates or updates one canvas node per absolute element, geometry and
//     z-index included;
//   - edits flow nodes in place (text and managed styles only);
//   - hides stable nodes that no flow element claims any more;
//   - prunes canvas nodes of elements that left the scene.
func Compile(elements []scene.Element, bp scene.Breakpoint, known []string) []Record {
	var recs []Record
	claimed := make(map[string]bool, len(known))
	keep := make([]string, 0)

	for _, el := range elements {
		switch el.Mode {
		case scene.ModeAbsolute:
			t, ok := el.TransformAt(bp)
			if !ok {
				continue
			}
			keep = append(keep, el.ID)
			recs = append(recs,
				Record{Op: OpInsert, Kind: TargetCanvas, Target: el.ID, Tag: TagFor(el.Type)},
				Record{Op: OpStyle, Kind: TargetCanvas, Target: el.ID, Styles: absoluteStyles(el, t)},
			)
			recs = append(recs, contentRecords(TargetCanvas, el.ID, el, true)...)
		case scene.ModeFlow:
			if el.StableID == "" {
				continue
			}
			claimed[el.StableID] = true
			recs = append(recs,
				Record{Op: OpVisible, Kind: TargetStable, Target: el.StableID, Visible: true},
				Record{Op: OpStyle, Kind: TargetStable, Target: el.StableID, Styles: copyStyles(el.Styles)},
			)
			recs = append(recs, contentRecords(TargetStable, el.StableID, el, false)...)
		}
	}

	for _, id := range known {
		if !claimed[id] {
			recs = append(recs, Record{Op: OpVisible, Kind: TargetStable, Target: id, Visible: false})
		}
	}
	recs = append(recs, Record{Op: OpPrune, Kind: TargetCanvas, Keep: keep})
	return recs
}

func absoluteStyles(el scene.Element, t scene.Transform) map[string]string {
	st := copyStyles(el.Styles)
	st["position"] = "absolute"
	st["box-sizing"] = "border-box"
	st["left"] = px(t.Left)
	st["top"] = px(t.Top)
	st["width"] = px(t.Width)
	st["height"] = px(t.Height)
	st["z-index"] = strconv.Itoa(el.ZIndex)
	if r := t.Rotation(); r != 0 {
		st["transform"] = "rotate(" + strconv.FormatFloat(r, 'f', -1, 64) + "deg)"
	} else {
		delete(st, "transform")
	}
	return st
}

// contentRecords renders element content. Flow nodes keep their markup
// unless the content differs from what is rendered, so only text and
// media attributes are written to them.
func contentRecords(kind TargetKind, target string, el scene.Element, canvas bool) []Record {
	attr := func(name, value string) Record {
		if value == "" {
			return Record{Op: OpAttrDel, Kind: kind, Target: target, Name: name}
		}
		return Record{Op: OpAttr, Kind: kind, Target: target, Name: name, Value: value}
	}
	switch c := el.Content.(type) {
	case scene.TextContent:
		if el.Type == scene.TypeSection && !canvas {
			return nil
		}
		return []Record{{Op: OpText, Kind: kind, Target: target, Value: c.Text}}
	case scene.LinkContent:
		recs := []Record{{Op: OpText, Kind: kind, Target: target, Value: c.Label}}
		if canvas || c.Href != "" {
			recs = append(recs, attr("href", c.Href))
		}
		return recs
	case scene.MediaContent:
		if !canvas && c.Src == "" {
			return nil
		}
		recs := []Record{attr("src", c.Src), attr("alt", c.Alt)}
		if el.Type == scene.TypeVideo {
			recs = append(recs, attr("poster", c.Poster))
		}
		return recs
	case scene.MarkupContent:
		if !canvas {
			return nil
		}
		return []Record{{Op: OpHTML, Kind: kind, Target: target, Value: c.HTML}}
	}
	return nil
}

func copyStyles(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+8)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
