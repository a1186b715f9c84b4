package recall

import (
	"math"
	"sort"
	"strings"

	"siyuan-recall/internal/intent"
	"siyuan-recall/internal/linkdoc"
)

// contentPrefixLen bounds the normalized prefix used to detect near-identical
// blocks inside one document (doc row vs section row of the same text).
const contentPrefixLen = 800

// topBlocksPerDoc is how many block scores feed the document score.
const topBlocksPerDoc = 5

// aggregate groups scored blocks into documents and applies the coverage
// filter and the topic/anchor narrowing passes, each with graceful fallback.
func (e *Engine) aggregate(blocks []Block, in *intent.Intent) []Doc {
	if len(blocks) == 0 {
		return nil
	}

	groups := make(map[string][]Block)
	var order []string
	for _, b := range blocks {
		id := blockDocID(b)
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], b)
	}

	docs := make([]Doc, 0, len(order))
	for _, id := range order {
		docs = append(docs, buildDoc(id, groups[id], in.Keywords))
	}

	docs = coverageFilter(docs, in)
	docs = e.topicNarrow(docs, in)
	docs = anchorNarrow(docs, in.Keywords, e.topicsInQuery(in))

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
	maxDocs := e.cfg.MaxDocs
	if maxDocs <= 0 {
		maxDocs = 5
	}
	if len(docs) > maxDocs {
		docs = docs[:maxDocs]
	}
	return docs
}

// buildDoc collapses one block group into a scored document. Blocks arrive
// sorted by score, so the first survivor of a content-prefix collision is the
// best one.
func buildDoc(id string, blocks []Block, keywords []string) Doc {
	seenPrefix := make(map[string]struct{}, len(blocks))
	kept := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		p := contentPrefix(b.Content)
		if _, ok := seenPrefix[p]; ok {
			continue
		}
		seenPrefix[p] = struct{}{}
		kept = append(kept, b)
	}

	doc := Doc{ID: id, Source: "search", Blocks: kept}
	if len(kept) > 0 {
		doc.HPath = kept[0].HPath
		doc.UpdatedAt = kept[0].UpdatedAt
	}

	var sum float64
	n := 0
	for _, b := range kept {
		if n >= topBlocksPerDoc {
			break
		}
		sum += b.Score
		n++
	}
	if n > 0 {
		doc.Score = 1 - math.Exp(-sum/float64(n))
	}

	hpath := strings.ToLower(doc.HPath)
	pathMatches := 0
	for _, k := range keywords {
		kl := strings.ToLower(k)
		matched := strings.Contains(hpath, kl)
		if matched {
			pathMatches++
		}
		if !matched {
			for _, b := range kept {
				if strings.Contains(strings.ToLower(b.Content), kl) {
					matched = true
					break
				}
			}
		}
		if matched {
			doc.MatchedKeywords = append(doc.MatchedKeywords, k)
		}
	}
	doc.Score += 0.1 * float64(pathMatches)

	return doc
}

func contentPrefix(content string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(content), " "))
	runes := []rune(normalized)
	if len(runes) > contentPrefixLen {
		runes = runes[:contentPrefixLen]
	}
	return string(runes)
}

// coverageFilter drops docs that match too few keywords. Tight CJK intents
// require two matches, everything else one. An emptying filter falls back to
// the unfiltered set.
func coverageFilter(docs []Doc, in *intent.Intent) []Doc {
	if len(in.Keywords) == 0 {
		return docs
	}
	need := 1
	if in.CJKKeywords() >= 2 && len(in.Keywords) <= 4 {
		need = 2
	}

	var kept []Doc
	for _, d := range docs {
		if len(d.MatchedKeywords) >= need {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return docs
	}
	return kept
}

// topicsInQuery returns the configured topic keywords present in the query.
func (e *Engine) topicsInQuery(in *intent.Intent) []string {
	var topics []string
	lower := strings.ToLower(in.Query)
	for _, t := range e.cfg.TopicKeywords {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			topics = append(topics, t)
		}
	}
	return topics
}

// topicNarrow keeps docs whose hpath or top-line headings carry an active
// topic keyword, falling back to the full set when nothing qualifies.
func (e *Engine) topicNarrow(docs []Doc, in *intent.Intent) []Doc {
	topics := e.topicsInQuery(in)
	if len(topics) == 0 {
		return docs
	}

	var kept []Doc
	for _, d := range docs {
		if docMatchesTopic(d, topics) {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return docs
	}
	return kept
}

func docMatchesTopic(d Doc, topics []string) bool {
	hpath := strings.ToLower(d.HPath)
	for _, t := range topics {
		tl := strings.ToLower(t)
		if strings.Contains(hpath, tl) {
			return true
		}
		for _, b := range d.Blocks {
			if h, ok := topHeading(b.Content); ok && strings.Contains(strings.ToLower(h), tl) {
				return true
			}
		}
	}
	return false
}

// topHeading returns a block's first line when it is a markdown heading.
func topHeading(content string) (string, bool) {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return strings.TrimLeft(line, "# "), true
	}
	return "", false
}

// anchorNarrow keeps docs whose coverage includes one of the anchors: the up
// to two longest non-topic keywords. Falls back when it would empty the set.
func anchorNarrow(docs []Doc, keywords, topics []string) []Doc {
	topicSet := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		topicSet[strings.ToLower(t)] = struct{}{}
	}

	var anchors []string
	sorted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if _, isTopic := topicSet[strings.ToLower(k)]; !isTopic {
			sorted = append(sorted, k)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len([]rune(sorted[i])) > len([]rune(sorted[j]))
	})
	if len(sorted) > 2 {
		sorted = sorted[:2]
	}
	anchors = sorted
	if len(anchors) == 0 {
		return docs
	}

	var kept []Doc
	for _, d := range docs {
		if docHasAnchor(d, anchors) {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return docs
	}
	return kept
}

func docHasAnchor(d Doc, anchors []string) bool {
	for _, matched := range d.MatchedKeywords {
		for _, a := range anchors {
			if strings.EqualFold(matched, a) {
				return true
			}
		}
	}
	return false
}

// mergeLinked prepends linked docs to the search results, deduplicating by
// doc id in the linked docs' favor.
func (e *Engine) mergeLinked(linked []linkdoc.LinkedDoc, docs []Doc) []Doc {
	if len(linked) == 0 {
		return docs
	}

	linkedIDs := make(map[string]struct{}, len(linked))
	out := make([]Doc, 0, len(linked)+len(docs))
	for _, l := range linked {
		linkedIDs[l.ID] = struct{}{}
		out = append(out, Doc{
			ID:        l.ID,
			HPath:     l.HPath,
			UpdatedAt: l.UpdatedAt,
			Score:     1,
			Source:    SourceLinked,
			Markdown:  l.Markdown,
			Blocks: []Block{{
				ID:      l.ID,
				RootID:  l.ID,
				HPath:   l.HPath,
				Content: l.Markdown,
				Source:  SourceLinked,
				Score:   1,
			}},
		})
	}
	for _, d := range docs {
		if _, ok := linkedIDs[d.ID]; ok {
			continue
		}
		out = append(out, d)
	}
	return out
}
