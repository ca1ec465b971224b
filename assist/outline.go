package assist

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// DefaultOutlineLimit caps the outline sent to the generator, in bytes.
const DefaultOutlineLimit = 16 << 10

// Outliner renders document markup as a markdown outline.
type Outliner struct {
	conv  *converter.Converter
	limit int
}

// NewOutliner returns an outliner truncating at limit bytes (0 = default).
func NewOutliner(limit int) *Outliner {
	if limit <= 0 {
		limit = DefaultOutlineLimit
	}
	return &Outliner{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		limit: limit,
	}
}

// Outline converts markup to markdown. Conversion failures yield "".
func (o *Outliner) Outline(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	md, err := o.conv.ConvertString(markup)
	if err != nil {
		return ""
	}
	md = strings.TrimSpace(md)
	if len(md) > o.limit {
		cut := o.limit
		for cut > 0 && !utf8Start(md[cut]) {
			cut--
		}
		md = md[:cut] + "\n..."
	}
	return md
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
