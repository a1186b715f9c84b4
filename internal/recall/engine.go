// Package recall turns a prompt into a bounded context block: candidate
// blocks from up to three search paths, reranked and aggregated into
// documents, rendered by the formatter.
package recall

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"siyuan-recall/internal/config"
	"siyuan-recall/internal/intent"
	"siyuan-recall/internal/linkdoc"
	"siyuan-recall/internal/siyuan"
	"siyuan-recall/internal/storage"
)

// Source names for retrieved blocks.
const (
	SourceFTS      = "fts"
	SourceFullText = "fulltext"
	SourceSQL      = "sql"
	SourceLinked   = "linked_doc"
)

const compactLayout = "20060102150405"

// Block is the normalized retrieval unit shared by all paths.
type Block struct {
	ID        string  `json:"id"`
	RootID    string  `json:"rootId"`
	HPath     string  `json:"hpath"`
	Content   string  `json:"content"`
	UpdatedAt string  `json:"updatedAt"`
	Source    string  `json:"source"`
	Score     float64 `json:"score"`

	// rank is the native FTS rank (smaller is better); only the fts path
	// sets it.
	rank    float64
	hasRank bool
}

// Doc is an aggregated document ready for formatting.
type Doc struct {
	ID              string   `json:"id"`
	HPath           string   `json:"hpath"`
	UpdatedAt       string   `json:"updatedAt"`
	Score           float64  `json:"score"`
	Source          string   `json:"source"`
	Markdown        string   `json:"markdown,omitempty"` // linked docs only
	Blocks          []Block  `json:"blocks"`
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
}

// Result is the outcome of one recall call. Retrieve never fails: path and
// linked-doc errors degrade the result instead.
type Result struct {
	Docs    []Doc  `json:"docs"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
	Query   string `json:"query,omitempty"`
}

// Engine runs the retrieval pipeline.
type Engine struct {
	store    storage.IndexStore // nil when the local index is disabled
	client   siyuan.API
	analyzer *intent.Analyzer
	resolver *linkdoc.Resolver
	cfg      config.RecallConfig

	// remoteOK gates the remote paths; the lifecycle coordinator wires it to
	// its availability cache. Defaults to always-on.
	remoteOK func(ctx context.Context) bool
}

// NewEngine wires the retrieval pipeline.
func NewEngine(store storage.IndexStore, client siyuan.API, analyzer *intent.Analyzer, resolver *linkdoc.Resolver, cfg config.RecallConfig) *Engine {
	return &Engine{
		store:    store,
		client:   client,
		analyzer: analyzer,
		resolver: resolver,
		cfg:      cfg,
		remoteOK: func(context.Context) bool { return true },
	}
}

// SetRemoteGate installs the availability check consulted before any remote
// path or linked-doc fetch runs.
func (e *Engine) SetRemoteGate(ok func(ctx context.Context) bool) {
	if ok != nil {
		e.remoteOK = ok
	}
}

// Retrieve runs gating, the search paths and aggregation for one prompt.
func (e *Engine) Retrieve(ctx context.Context, prompt string) *Result {
	linkedIDs := e.resolver.ExtractIDs(prompt)

	decision := e.analyzer.Gate(prompt, len(linkedIDs) > 0)
	if !decision.Should {
		return &Result{Skipped: true, Reason: decision.Reason}
	}

	in := e.analyzer.Analyze(prompt)

	remoteUp := e.remoteOK(ctx)

	// Linked docs resolve concurrently with the search paths.
	var linked []linkdoc.LinkedDoc
	var linkedWG sync.WaitGroup
	if len(linkedIDs) > 0 && remoteUp {
		linkedWG.Add(1)
		go func() {
			defer linkedWG.Done()
			linked = e.resolver.Resolve(ctx, linkedIDs)
		}()
	}

	var blocks []Block
	if e.cfg.Enabled {
		blocks = e.runPaths(ctx, in, remoteUp)
		blocks = e.scoreAndDedup(blocks, in)
		blocks = e.twoStage(blocks)
	}
	linkedWG.Wait()

	docs := e.aggregate(blocks, in)
	docs = e.mergeLinked(linked, docs)

	res := &Result{Docs: docs, Reason: decision.Reason, Query: in.Query}
	if len(docs) == 0 {
		res.Reason = "no_results"
	}
	return res
}

// runPaths launches the enabled search paths and joins them all-settled. A
// failing path contributes zero candidates.
func (e *Engine) runPaths(ctx context.Context, in *intent.Intent, remoteUp bool) []Block {
	type pathResult struct {
		source string
		blocks []Block
		err    error
	}

	paths := e.cfg.SearchPaths
	if len(paths) == 0 {
		paths = []string{SourceFTS, SourceFullText, SourceSQL}
	}

	results := make(chan pathResult, len(paths))
	launched := 0
	for _, p := range paths {
		p := p
		switch p {
		case SourceFTS:
			if e.store == nil {
				continue
			}
		case SourceFullText, SourceSQL:
			if !remoteUp {
				continue
			}
		}
		launched++
		go func() {
			var blocks []Block
			var err error
			switch p {
			case SourceFTS:
				blocks, err = e.searchFTS(ctx, in)
			case SourceFullText:
				blocks, err = e.searchFullText(ctx, in)
			case SourceSQL:
				blocks, err = e.searchSQL(ctx, in)
			}
			results <- pathResult{source: p, blocks: blocks, err: err}
		}()
	}

	var all []Block
	for i := 0; i < launched; i++ {
		r := <-results
		if r.err != nil {
			slog.WarnContext(ctx, "search path failed", "path", r.source, "error", r.err)
			continue
		}
		all = append(all, r.blocks...)
	}
	return all
}

func (e *Engine) candidateLimit() int {
	if e.cfg.TwoStage.CandidateLimitPerPath > 0 {
		return e.cfg.TwoStage.CandidateLimitPerPath
	}
	return 100
}

// buildFTSQuery shapes the stage-1 query: phrase-AND for tight CJK intents,
// OR expansion for long prompts, the normalized query verbatim otherwise.
func buildFTSQuery(in *intent.Intent) string {
	kws := in.Keywords
	if in.CJKKeywords() >= 2 && len(kws) <= 4 {
		quoted := make([]string, len(kws))
		for i, k := range kws {
			quoted[i] = `"` + strings.ReplaceAll(k, `"`, "") + `"`
		}
		return strings.Join(quoted, " ")
	}
	if len([]rune(in.Query)) >= 18 && len(kws) >= 2 {
		return strings.Join(kws, " OR ")
	}
	return in.Query
}

func (e *Engine) searchFTS(ctx context.Context, in *intent.Intent) ([]Block, error) {
	rows, err := e.store.Search(ctx, buildFTSQuery(in), e.candidateLimit())
	if err != nil {
		return nil, err
	}
	blocks := make([]Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, Block{
			ID:        row.BlockID,
			RootID:    row.DocID,
			HPath:     row.HPath,
			Content:   row.Content,
			UpdatedAt: row.UpdatedAt,
			Source:    SourceFTS,
			rank:      row.Rank,
			hasRank:   true,
		})
	}
	return blocks, nil
}

func (e *Engine) searchFullText(ctx context.Context, in *intent.Intent) ([]Block, error) {
	raw, err := e.client.SearchFullText(ctx, in.Query, siyuan.FullTextOptions{
		Page: 1,
		Size: e.candidateLimit(),
	})
	if err != nil {
		return nil, err
	}
	blocks := make([]Block, 0, len(raw))
	for _, b := range raw {
		blocks = append(blocks, Block{
			ID:        b.ID,
			RootID:    b.RootID,
			HPath:     b.HPath,
			Content:   b.Content,
			UpdatedAt: b.Updated,
			Source:    SourceFullText,
		})
	}
	return blocks, nil
}

func (e *Engine) searchSQL(ctx context.Context, in *intent.Intent) ([]Block, error) {
	if len(in.Keywords) == 0 {
		return nil, nil
	}

	likes := make([]string, 0, len(in.Keywords))
	for _, k := range in.Keywords {
		likes = append(likes, fmt.Sprintf(`content LIKE '%%%s%%' ESCAPE '\'`, likeEscape(k)))
	}
	stmt := fmt.Sprintf(
		"SELECT * FROM blocks WHERE (%s)", strings.Join(likes, " OR "))
	// The time range applies only on this path.
	if in.TimeRange != nil {
		stmt += fmt.Sprintf(" AND updated > '%s'", in.TimeRange.Since.UTC().Format(compactLayout))
	}
	stmt += fmt.Sprintf(
		" AND type != 'd' AND content IS NOT NULL AND TRIM(content) != '' ORDER BY updated DESC LIMIT %d",
		e.candidateLimit())

	rows, err := e.client.SQL(ctx, stmt)
	if err != nil {
		return nil, err
	}
	blocks := make([]Block, 0, len(rows))
	for _, row := range rows {
		b := normalizeRow(row)
		if b.ID == "" {
			continue
		}
		b.Source = SourceSQL
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// normalizeRow coalesces the field spellings different store versions and
// SELECT shapes produce.
func normalizeRow(row map[string]any) Block {
	return Block{
		ID:        rowString(row, "id", "blockID", "block_id"),
		RootID:    rowString(row, "root_id", "rootID", "rootId", "docID", "doc_id"),
		HPath:     rowString(row, "hpath", "hPath"),
		Content:   rowString(row, "content", "markdown"),
		UpdatedAt: rowString(row, "updated", "updated_at", "updatedAt"),
	}
}

func rowString(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// likeEscape escapes LIKE metacharacters and quotes for inline use.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return strings.ReplaceAll(s, `'`, `''`)
}

// sourceWeight is the per-path base multiplier.
func sourceWeight(source string) float64 {
	switch source {
	case SourceFTS:
		return 1.0
	case SourceFullText:
		return 0.9
	case SourceSQL:
		return 0.75
	default:
		return 1.0
	}
}

// scoreAndDedup scores every candidate and keeps the best copy per block id.
func (e *Engine) scoreAndDedup(blocks []Block, in *intent.Intent) []Block {
	query := strings.ToLower(in.Query)
	now := time.Now()

	best := make(map[string]Block, len(blocks))
	var order []string
	for _, b := range blocks {
		b.Score = scoreBlock(b, query, in.Keywords, now)
		prev, ok := best[b.ID]
		if !ok {
			best[b.ID] = b
			order = append(order, b.ID)
			continue
		}
		if b.Score > prev.Score {
			best[b.ID] = b
		}
	}

	out := make([]Block, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

func scoreBlock(b Block, query string, keywords []string, now time.Time) float64 {
	content := strings.ToLower(b.Content)
	hpath := strings.ToLower(b.HPath)

	sum := 0.0
	if len(query) >= 3 {
		if strings.Contains(content, query) {
			sum += 1.2
		}
		if strings.Contains(hpath, query) {
			sum += 0.6
		}
	}
	for _, k := range keywords {
		k = strings.ToLower(k)
		if strings.Contains(content, k) {
			sum += 0.35
		}
		if strings.Contains(hpath, k) {
			sum += 0.15
		}
	}
	if t, ok := parseUpdated(b.UpdatedAt); ok {
		days := now.Sub(t).Hours() / 24
		if bonus := 0.3 - days*0.01; bonus > 0 {
			sum += bonus
		}
	}
	if b.hasRank {
		rank := b.rank
		if rank < 0 {
			rank = 0
		}
		if rank > 0.8 {
			rank = 0.8
		}
		sum += 0.8 - rank
	}
	return sum * sourceWeight(b.Source)
}

func parseUpdated(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(compactLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// twoStage sorts candidates and applies the per-doc diversity cap and the
// final block limit.
func (e *Engine) twoStage(blocks []Block) []Block {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Score > blocks[j].Score
	})

	limit := e.cfg.TwoStage.FinalBlockLimit
	if limit <= 0 {
		limit = 40
	}
	if !e.cfg.TwoStage.Enabled {
		if len(blocks) > limit {
			blocks = blocks[:limit]
		}
		return blocks
	}

	docCap := e.cfg.TwoStage.PerDocBlockCap
	if docCap <= 0 {
		docCap = 6
	}

	perDoc := make(map[string]int)
	out := make([]Block, 0, limit)
	for _, b := range blocks {
		doc := blockDocID(b)
		if perDoc[doc] >= docCap {
			continue
		}
		perDoc[doc]++
		out = append(out, b)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func blockDocID(b Block) string {
	if b.RootID != "" {
		return b.RootID
	}
	return b.ID
}
