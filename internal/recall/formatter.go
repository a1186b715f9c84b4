package recall

import (
	"strings"
	"unicode/utf8"

	"siyuan-recall/internal/config"
)

// Open/close markers are bit-stable: downstream pipelines detect the injected
// block by matching these lines exactly.
const (
	openMarker  = "===== RECALLED NOTES BEGIN ====="
	closeMarker = "===== RECALLED NOTES END ====="
	preamble    = "The following notes from your knowledge base may be relevant to this conversation:"
)

// minLinkedRoom is the smallest fenced-markdown body worth rendering; a
// linked doc with less remaining budget is skipped instead of mangled.
const minLinkedRoom = 60

// Formatter renders aggregated docs into a single bounded context string.
type Formatter struct {
	cfg config.RecallConfig
}

// NewFormatter creates a formatter for the given recall configuration.
func NewFormatter(cfg config.RecallConfig) *Formatter {
	return &Formatter{cfg: cfg}
}

func (f *Formatter) maxChars() int {
	tokens := f.cfg.MaxContextTokens
	if tokens <= 0 {
		tokens = 2000
	}
	// Rough token estimate: 4 chars per token.
	return tokens * 4
}

func (f *Formatter) excerptMax() int {
	if f.cfg.BlockExcerptMax > 0 {
		return f.cfg.BlockExcerptMax
	}
	return 540
}

// Format renders the context block. Docs are emitted in order until the
// character budget is exhausted; an empty doc list yields an empty string so
// no context is injected.
func (f *Formatter) Format(docs []Doc) string {
	if len(docs) == 0 {
		return ""
	}

	budget := f.maxChars()
	var b strings.Builder
	b.WriteString(openMarker)
	b.WriteString("\n")
	b.WriteString(preamble)
	b.WriteString("\n")

	// The closing marker is always emitted, so reserve room for it.
	remaining := budget - b.Len() - len(closeMarker) - 1

	for _, doc := range docs {
		var section string
		if doc.Markdown != "" {
			section = f.renderLinkedDoc(doc, remaining)
		} else {
			section = f.renderDoc(doc)
		}
		if section == "" {
			continue
		}
		if len(section) > remaining {
			section = truncateChars(section, remaining)
			if section == "" {
				break
			}
		}
		b.WriteString(section)
		remaining -= len(section)
		if remaining <= 0 {
			break
		}
	}

	b.WriteString(closeMarker)
	return b.String()
}

// renderLinkedDoc renders a full linked document inside a fenced markdown
// block, truncated to what fits.
func (f *Formatter) renderLinkedDoc(doc Doc, remaining int) string {
	header := "\n## 🔗 " + doc.HPath + f.updatedSuffix(doc.UpdatedAt) + "\n"
	frame := header + "```markdown\n" + "\n```\n"
	room := remaining - len(frame)
	if room < minLinkedRoom {
		return ""
	}

	body := doc.Markdown
	if len(body) > room {
		body = truncateChars(body, room-3) + "..."
	}
	return header + "```markdown\n" + body + "\n```\n"
}

// renderDoc renders a search doc header plus up to five block excerpts.
func (f *Formatter) renderDoc(doc Doc) string {
	var b strings.Builder
	b.WriteString("\n## 📄 ")
	b.WriteString(doc.HPath)
	b.WriteString(f.updatedSuffix(doc.UpdatedAt))
	b.WriteString("\n")

	limit := topBlocksPerDoc
	for i, block := range doc.Blocks {
		if i >= limit {
			break
		}
		first, rest := splitFirstLine(block.Content)
		if first == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(first)
		b.WriteString("\n")
		if rest != "" {
			excerpt := rest
			if len(excerpt) > f.excerptMax() {
				excerpt = truncateChars(excerpt, f.excerptMax()) + "..."
			}
			b.WriteString("  ")
			b.WriteString(strings.ReplaceAll(excerpt, "\n", "\n  "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (f *Formatter) updatedSuffix(updated string) string {
	if updated == "" {
		return ""
	}
	return " (" + updated + ")"
}

// splitFirstLine returns the display line for a block (heading text when the
// block starts with one) and the remaining content.
func splitFirstLine(content string) (string, string) {
	content = strings.TrimSpace(content)
	first := content
	rest := ""
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		first = content[:i]
		rest = strings.TrimSpace(content[i+1:])
	}
	first = strings.TrimSpace(strings.TrimLeft(first, "# "))
	return first, rest
}

// truncateChars cuts at a byte budget without splitting a UTF-8 rune.
func truncateChars(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
