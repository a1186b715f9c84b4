// Package sections turns a document's kramdown source into the rows the
// local index stores: a sanitized, dedup-compressed doc body plus one entry
// per configured heading section.
package sections

import (
	"fmt"
	"regexp"
	"strings"

	"siyuan-recall/internal/storage"
)

var (
	// Standalone kramdown attribute lines, e.g. `{: id="2024..." updated="..."}`.
	attrLineRe = regexp.MustCompile(`^\s*\{:[^}]*\}\s*$`)
	// Inline attribute blobs appended to a line of content.
	attrInlineRe = regexp.MustCompile(`\s*\{:[^}]*\}`)
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listPrefixRe = regexp.MustCompile(`^\s*(?:\d+\.\s+|[-*]\s+)`)
)

// Sanitize strips kramdown attribute syntax, leaving plain markdown.
func Sanitize(kramdown string) string {
	lines := strings.Split(kramdown, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if attrLineRe.MatchString(line) {
			continue
		}
		out = append(out, attrInlineRe.ReplaceAllString(line, ""))
	}
	return strings.Join(out, "\n")
}

// SplitOptions controls section extraction.
type SplitOptions struct {
	// Levels selects the heading levels that begin a section (default H2).
	Levels []int
	// MaxChars caps a section's content; longer sections get an ellipsis.
	MaxChars int
	// DedupWindow is the sliding-window size for near-duplicate line removal
	// inside a section.
	DedupWindow int
	// MaxSections caps how many sections one document may produce.
	MaxSections int
}

func (o SplitOptions) withDefaults() SplitOptions {
	if len(o.Levels) == 0 {
		o.Levels = []int{2}
	}
	if o.MaxChars <= 0 {
		o.MaxChars = 1200
	}
	if o.DedupWindow <= 0 {
		o.DedupWindow = 200
	}
	if o.MaxSections <= 0 {
		o.MaxSections = 200
	}
	return o
}

// Split extracts sections from sanitized markdown. Section ids encode the
// heading level and the zero-based line index of the heading so a re-split
// of unchanged markdown reproduces identical ids. When no configured level
// matches, no sections are produced; the doc-level content row still covers
// the document.
func Split(docID, markdown string, opts SplitOptions) []storage.Section {
	opts = opts.withDefaults()
	selected := make(map[int]struct{}, len(opts.Levels))
	for _, l := range opts.Levels {
		selected[l] = struct{}{}
	}

	lines := strings.Split(markdown, "\n")

	type marker struct {
		line  int
		level int
	}
	var markers []marker
	for i, line := range lines {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level := len(m[1])
		if _, ok := selected[level]; ok {
			markers = append(markers, marker{line: i, level: level})
		}
	}

	var sections []storage.Section
	for idx, mk := range markers {
		if len(sections) >= opts.MaxSections {
			break
		}
		end := len(lines)
		if idx+1 < len(markers) {
			end = markers[idx+1].line
		}

		body := dedupLines(lines[mk.line:end], opts.DedupWindow)
		content := strings.TrimRight(strings.Join(body, "\n"), "\n")
		content = truncate(content, opts.MaxChars)
		if strings.TrimSpace(content) == "" {
			continue
		}

		sections = append(sections, storage.Section{
			ID:      fmt.Sprintf("%s::h%d::%d", docID, mk.level, mk.line),
			DocID:   docID,
			Content: content,
		})
	}
	return sections
}

// DedupContent compresses a whole document body with the larger doc-level
// dedup window. Used to build the document FTS row.
func DedupContent(markdown string, window int) string {
	if window <= 0 {
		window = 400
	}
	lines := dedupLines(strings.Split(markdown, "\n"), window)
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// dedupLines drops lines whose normalized form already appeared within the
// trailing window. List prefixes ("1. ", "- ") are treated as equivalent so
// renumbered lists do not defeat the dedup.
func dedupLines(lines []string, window int) []string {
	out := make([]string, 0, len(lines))
	recent := make([]string, 0, window)
	seen := make(map[string]int)

	for _, line := range lines {
		key := normalizeLine(line)
		if key != "" && seen[key] > 0 {
			continue
		}
		out = append(out, line)
		if key == "" {
			continue
		}
		recent = append(recent, key)
		seen[key]++
		if len(recent) > window {
			oldest := recent[0]
			recent = recent[1:]
			seen[oldest]--
			if seen[oldest] == 0 {
				delete(seen, oldest)
			}
		}
	}
	return out
}

func normalizeLine(line string) string {
	stripped := listPrefixRe.ReplaceAllString(line, "")
	return strings.TrimSpace(stripped)
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars]) + "..."
}
