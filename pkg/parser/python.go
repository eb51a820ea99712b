package parser

import (
	"regexp"
	"strings"

	"github.com/outlinetools/olv/pkg/model"
)

// PythonParser extracts class and function definitions by scanning lines.
// Indentation determines nesting: a method indented one level inside a
// class becomes a level-2 heading. This is intentionally approximate; the
// outline builder degrades malformed sequences to roots.
type PythonParser struct{}

var pyDefRe = regexp.MustCompile(`^(\s*)(?:async\s+)?(def|class)\s+([A-Za-z_]\w*)`)

// pyIndentWidth is the indentation assumed per nesting level.
const pyIndentWidth = 4

func (p *PythonParser) ParseHeadings(input string) ([]model.Heading, error) {
	var headings []model.Heading

	offset := 0
	for _, line := range strings.SplitAfter(input, "\n") {
		m := pyDefRe.FindStringSubmatch(line)
		if m == nil {
			offset += len(line)
			continue
		}

		indent := indentColumns(m[1])
		end := offset + len(strings.TrimRight(line, "\n"))
		headings = append(headings, model.Heading{
			Text:  m[3],
			Level: indent/pyIndentWidth + 1,
			Start: offset,
			End:   end,
		})
		offset += len(line)
	}
	return headings, nil
}

// indentColumns measures leading whitespace, counting tabs as one level.
func indentColumns(ws string) int {
	cols := 0
	for _, r := range ws {
		if r == '\t' {
			cols += pyIndentWidth
		} else {
			cols++
		}
	}
	return cols
}
