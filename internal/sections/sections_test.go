package sections

import (
	"strings"
	"testing"
)

func TestSanitizeRemovesAttributeLines(t *testing.T) {
	in := "# Title\n{: id=\"20240101120000-abcdefg\" updated=\"20240102\"}\nbody text {: style=\"color:red\"}\nplain line"
	got := Sanitize(in)

	if strings.Contains(got, "{:") {
		t.Errorf("Sanitize() left attribute syntax: %q", got)
	}
	if !strings.Contains(got, "body text") || !strings.Contains(got, "plain line") {
		t.Errorf("Sanitize() dropped content: %q", got)
	}
	if !strings.Contains(got, "# Title") {
		t.Errorf("Sanitize() dropped heading: %q", got)
	}
}

func TestSplitDefaultH2(t *testing.T) {
	md := strings.Join([]string{
		"# Doc Title",   // 0
		"intro line",    // 1
		"",              // 2
		"## First",      // 3
		"first body",    // 4
		"### Sub",       // 5
		"sub body",      // 6
		"## Second",     // 7
		"second body",   // 8
	}, "\n")

	secs := Split("doc1", md, SplitOptions{})
	if len(secs) != 2 {
		t.Fatalf("Split() produced %d sections, want 2", len(secs))
	}

	if secs[0].ID != "doc1::h2::3" {
		t.Errorf("first section id = %q, want doc1::h2::3", secs[0].ID)
	}
	if secs[1].ID != "doc1::h2::7" {
		t.Errorf("second section id = %q, want doc1::h2::7", secs[1].ID)
	}

	// Body keeps deeper headings, stops at the next selected level.
	if !strings.Contains(secs[0].Content, "### Sub") {
		t.Errorf("first section lost deeper heading: %q", secs[0].Content)
	}
	if strings.Contains(secs[0].Content, "Second") {
		t.Errorf("first section leaked into the next: %q", secs[0].Content)
	}
	if !strings.HasPrefix(secs[0].Content, "## First") {
		t.Errorf("section content must begin with its heading line: %q", secs[0].Content)
	}
}

func TestSplitNoMatchingLevels(t *testing.T) {
	md := "# Only Title\nbody without subheadings"
	secs := Split("doc1", md, SplitOptions{Levels: []int{2}})
	if len(secs) != 0 {
		t.Errorf("Split() = %d sections, want 0 when no configured level matches", len(secs))
	}
}

func TestSplitDeterministicIDs(t *testing.T) {
	md := "## A\nbody\n## B\nbody"
	first := Split("doc1", md, SplitOptions{})
	second := Split("doc1", md, SplitOptions{})

	if len(first) != len(second) {
		t.Fatalf("re-split changed section count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("re-split changed id: %q vs %q", first[i].ID, second[i].ID)
		}
	}
}

func TestSplitTruncatesLongSections(t *testing.T) {
	body := strings.Repeat("wordy line of section content\n", 100)
	md := "## Long\n" + body

	secs := Split("doc1", md, SplitOptions{MaxChars: 120})
	if len(secs) != 1 {
		t.Fatalf("Split() produced %d sections, want 1", len(secs))
	}
	if !strings.HasSuffix(secs[0].Content, "...") {
		t.Error("truncated section must end with ellipsis")
	}
	if len([]rune(secs[0].Content)) > 123 {
		t.Errorf("section length = %d runes, want <= 123", len([]rune(secs[0].Content)))
	}
}

func TestDedupTreatsListMarkersAsEquivalent(t *testing.T) {
	md := strings.Join([]string{
		"## Checklist",
		"1. review the draft",
		"- review the draft",
		"2. publish",
	}, "\n")

	secs := Split("doc1", md, SplitOptions{})
	if len(secs) != 1 {
		t.Fatalf("Split() produced %d sections, want 1", len(secs))
	}
	if strings.Count(secs[0].Content, "review the draft") != 1 {
		t.Errorf("dedup failed to collapse equivalent list lines: %q", secs[0].Content)
	}
	if !strings.Contains(secs[0].Content, "publish") {
		t.Errorf("dedup dropped distinct line: %q", secs[0].Content)
	}
}

func TestDedupWindowExpires(t *testing.T) {
	// With a window of 2, the repeat three lines later must survive.
	lines := []string{"alpha", "beta", "gamma", "delta", "alpha"}
	out := dedupLines(lines, 2)
	if len(out) != 5 {
		t.Errorf("dedupLines() = %v, want all 5 lines (repeat outside window)", out)
	}
}

func TestDedupContent(t *testing.T) {
	md := "same line\nsame line\nother line"
	got := DedupContent(md, 400)
	if strings.Count(got, "same line") != 1 {
		t.Errorf("DedupContent() = %q, want single copy", got)
	}
}

func TestTitleExtraction(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		fallback string
		want     string
	}{
		{"h1 wins", "# Main Title\n## Sub", "fb", "Main Title"},
		{"h2 when no h1", "intro\n## Section Title\nbody", "fb", "Section Title"},
		{"fallback when no headings", "just text", "fb", "fb"},
		{"empty markdown", "", "fb", "fb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.markdown, tt.fallback); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}
