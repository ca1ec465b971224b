package scene

import (
	"encoding/json"
	"fmt"
)

// ContentKind tags the variant held by a Content value.
type ContentKind string

const (
	KindText   ContentKind = "text"
	KindMedia  ContentKind = "media"
	KindLink   ContentKind = "link"
	KindMarkup ContentKind = "markup"
)

// Content is the type-specific payload of an element. The set of variants
// is closed: TextContent, MediaContent, LinkContent, MarkupContent.
type Content interface {
	Kind() ContentKind
	withAttr(name, value string) (Content, error)
}

// TextContent is plain text for text elements and labels.
type TextContent struct {
	Text string
}

// MediaContent is the source of an image or video.
type MediaContent struct {
	Src    string
	Alt    string
	Poster string
}

// LinkContent is a button or link target with its label.
type LinkContent struct {
	Href  string
	Label string
}

// MarkupContent is an opaque sanitized fragment for sections and custom nodes.
type MarkupContent struct {
	HTML string
}

func (TextContent) Kind() ContentKind   { return KindText }
func (MediaContent) Kind() ContentKind  { return KindMedia }
func (LinkContent) Kind() ContentKind   { return KindLink }
func (MarkupContent) Kind() ContentKind { return KindMarkup }

func (c TextContent) withAttr(name, value string) (Content, error) {
	if name != "text" {
		return nil, fmt.Errorf("attribute %q is not valid for text content", name)
	}
	c.Text = value
	return c, nil
}

func (c MediaContent) withAttr(name, value string) (Content, error) {
	switch name {
	case "src":
		c.Src = value
	case "alt":
		c.Alt = value
	case "poster":
		c.Poster = value
	default:
		return nil, fmt.Errorf("attribute %q is not valid for media content", name)
	}
	return c, nil
}

func (c LinkContent) withAttr(name, value string) (Content, error) {
	switch name {
	case "href":
		c.Href = value
	case "label":
		c.Label = value
	default:
		return nil, fmt.Errorf("attribute %q is not valid for link content", name)
	}
	return c, nil
}

func (c MarkupContent) withAttr(name, value string) (Content, error) {
	if name != "html" {
		return nil, fmt.Errorf("attribute %q is not valid for markup content", name)
	}
	c.HTML = value
	return c, nil
}

// compatible reports whether content of kind k may be attached to type t.
func compatible(t ElementType, k ContentKind) bool {
	switch t {
	case TypeText:
		return k == KindText
	case TypeImage, TypeVideo:
		return k == KindMedia
	case TypeButton:
		return k == KindLink || k == KindText
	case TypeSection, TypeCustom:
		return k == KindMarkup || k == KindText
	}
	return false
}

// DefaultContent returns the empty content variant for an element type.
func DefaultContent(t ElementType) Content {
	switch t {
	case TypeText:
		return TextContent{}
	case TypeImage, TypeVideo:
		return MediaContent{}
	case TypeButton:
		return LinkContent{}
	default:
		return MarkupContent{}
	}
}

// contentJSON is the wire form of every Content variant.
type contentJSON struct {
	Kind   ContentKind `json:"kind"`
	Text   string      `json:"text,omitempty"`
	Src    string      `json:"src,omitempty"`
	Alt    string      `json:"alt,omitempty"`
	Poster string      `json:"poster,omitempty"`
	Href   string      `json:"href,omitempty"`
	Label  string      `json:"label,omitempty"`
	HTML   string      `json:"html,omitempty"`
}

func encodeContent(c Content) *contentJSON {
	switch v := c.(type) {
	case TextContent:
		return &contentJSON{Kind: KindText, Text: v.Text}
	case MediaContent:
		return &contentJSON{Kind: KindMedia, Src: v.Src, Alt: v.Alt, Poster: v.Poster}
	case LinkContent:
		return &contentJSON{Kind: KindLink, Href: v.Href, Label: v.Label}
	case MarkupContent:
		return &contentJSON{Kind: KindMarkup, HTML: v.HTML}
	}
	return nil
}

func (c *contentJSON) decode() (Content, error) {
	if c == nil {
		return nil, nil
	}
	switch c.Kind {
	case KindText:
		return TextContent{Text: c.Text}, nil
	case KindMedia:
		return MediaContent{Src: c.Src, Alt: c.Alt, Poster: c.Poster}, nil
	case KindLink:
		return LinkContent{Href: c.Href, Label: c.Label}, nil
	case KindMarkup:
		return MarkupContent{HTML: c.HTML}, nil
	}
	return nil, fmt.Errorf("scene: unknown content kind %q", c.Kind)
}

// MarshalJSON encodes the element with its content tagged by kind.
func (e Element) MarshalJSON() ([]byte, error) {
	type Alias Element
	return json.Marshal(struct {
		Alias
		Content *contentJSON `json:"content,omitempty"`
	}{Alias(e), encodeContent(e.Content)})
}

// UnmarshalJSON decodes an element written by MarshalJSON.
func (e *Element) UnmarshalJSON(data []byte) error {
	type Alias Element
	aux := struct {
		*Alias
		Content *contentJSON `json:"content,omitempty"`
	}{Alias: (*Alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c, err := aux.Content.decode()
	if err != nil {
		return err
	}
	e.Content = c
	return nil
}
