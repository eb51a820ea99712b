package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/outlinetools/olv/pkg/model"
)

// MarkdownParser extracts ATX and setext headings using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) ParseHeadings(input string) ([]model.Heading, error) {
	src := []byte(input)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var headings []model.Heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}

		lines := h.Lines()
		if lines.Len() == 0 {
			continue
		}
		start := lineStart(src, lines.At(0).Start)
		end := lines.At(lines.Len() - 1).Stop

		headings = append(headings, model.Heading{
			Text:  strings.TrimSpace(string(h.Text(src))),
			Level: h.Level,
			Start: start,
			End:   end,
		})
	}
	return headings, nil
}

// lineStart walks back from a content offset to the beginning of its line
// so a heading's range includes the leading '#' markers.
func lineStart(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	for offset > 0 && src[offset-1] != '\n' {
		offset--
	}
	return offset
}
