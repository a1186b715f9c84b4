package sections

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var mdParser = goldmark.New()

// Title extracts a display title from markdown: the first H1, else the first
// H2, else the fallback (usually the title the store reported).
func Title(markdown, fallback string) string {
	if strings.TrimSpace(markdown) == "" {
		return fallback
	}

	source := []byte(markdown)
	doc := mdParser.Parser().Parse(text.NewReader(source))

	var firstH1, firstH2 string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := headingText(heading, source)
		switch {
		case heading.Level == 1 && firstH1 == "":
			firstH1 = title
			return ast.WalkStop, nil
		case heading.Level == 2 && firstH2 == "":
			firstH2 = title
		}
		return ast.WalkContinue, nil
	})

	if firstH1 != "" {
		return firstH1
	}
	if firstH2 != "" {
		return firstH2
	}
	return fallback
}

func headingText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
