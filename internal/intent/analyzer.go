// Package intent decides whether a prompt should trigger recall and distills
// it into search keywords, an intent type and an optional time range.
package intent

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"siyuan-recall/internal/config"
)

// Decision is the gate outcome for one prompt.
type Decision struct {
	Should bool   `json:"should"`
	Reason string `json:"reason"`
}

// TimeRange restricts the SQL search path to recently updated blocks.
type TimeRange struct {
	Days  int
	Since time.Time
}

// Intent is the distilled view of a prompt the retrieval engine works with.
type Intent struct {
	// Query is the prompt after normalization and force-phrase stripping.
	Query     string
	Keywords  []string
	TimeRange *TimeRange
	Type      string // chat, command, review, search, query
}

// CJKKeywords counts keywords that contain Han characters.
func (i *Intent) CJKKeywords() int {
	n := 0
	for _, k := range i.Keywords {
		if containsCJK(k) {
			n++
		}
	}
	return n
}

var (
	skipPhrases = []string{
		"不用回忆", "不要查笔记", "别查笔记", "don't recall", "no context", "skip recall",
	}
	forcePhrases = []string{
		"查一下我的笔记", "查我的笔记", "搜索我的笔记", "search my notes", "check my notes", "look up my notes",
	}
	// Connectives left dangling after a force phrase is cut off.
	forceConnectives = []string{"for", "about", "on", "regarding", "关于"}

	greetings = map[string]struct{}{
		"hi": {}, "hello": {}, "hey": {}, "yo": {}, "thanks": {}, "thank you": {},
		"你好": {}, "您好": {}, "在吗": {}, "早": {}, "早上好": {}, "晚上好": {}, "谢谢": {},
	}
	greetingRes = []*regexp.Regexp{
		regexp.MustCompile(`^(?i)(hi|hello|hey)\s+there[.!\s]*$`),
		regexp.MustCompile(`^(?i)good\s+(morning|afternoon|evening)[.!\s]*$`),
		regexp.MustCompile(`^你好[呀啊!！。\s]*$`),
	}

	reviewWords = []string{"回顾", "review", "总结", "summary"}
	searchWords = []string{"查找", "search", "找", "find"}

	// First match wins; longer phrases listed before their substrings.
	timePhrases = []struct {
		phrase string
		days   int
	}{
		{"上个月", 30}, {"last month", 30},
		{"上周", 7}, {"last week", 7},
		{"本周", 7}, {"this week", 7},
		{"昨天", 2}, {"yesterday", 2},
		{"今天", 1}, {"today", 1},
		{"最近", 30}, {"recent", 30},
	}

	latinStopwords = map[string]struct{}{
		"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
		"do": {}, "for": {}, "from": {}, "has": {}, "have": {}, "how": {}, "in": {}, "is": {},
		"it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "please": {}, "show": {},
		"tell": {}, "the": {}, "to": {}, "was": {}, "were": {}, "what": {}, "when": {},
		"where": {}, "which": {}, "who": {}, "why": {}, "with": {}, "you": {},
	}

	// Framing particles removed before CJK run extraction so a whole request
	// sentence does not collapse into one giant span.
	cjkParticles = []string{
		"告诉我", "帮我看看", "帮我", "请问", "我想知道", "我想", "看一下", "一下",
		"关于", "什么", "怎么", "如何", "请", "的", "了", "吗", "呢", "吧",
	}
)

// Analyzer gates prompts and extracts intents.
type Analyzer struct {
	cfg config.RecallConfig
	now func() time.Time
}

// NewAnalyzer creates an analyzer for the given recall configuration.
func NewAnalyzer(cfg config.RecallConfig) *Analyzer {
	return &Analyzer{cfg: cfg, now: time.Now}
}

// Gate applies the ordered gating rules. hasLinkedDoc reports whether the
// prompt carries an inline note link, which bypasses the length check.
func (a *Analyzer) Gate(prompt string, hasLinkedDoc bool) Decision {
	trimmed := strings.TrimSpace(prompt)
	lower := strings.ToLower(trimmed)

	for _, p := range skipPhrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return Decision{Should: false, Reason: "explicit_skip"}
		}
	}
	for _, p := range forcePhrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return Decision{Should: true, Reason: "explicit_force"}
		}
	}
	if hasLinkedDoc {
		return Decision{Should: true, Reason: "linked_doc"}
	}
	if len([]rune(trimmed)) < a.cfg.MinPromptLength {
		return Decision{Should: false, Reason: "too_short"}
	}
	if isGreeting(trimmed) {
		return Decision{Should: false, Reason: "greeting"}
	}

	typ := detectType(trimmed)
	for _, skip := range a.cfg.SkipIntentTypes {
		if typ == skip {
			return Decision{Should: false, Reason: "intent_" + typ}
		}
	}
	return Decision{Should: true, Reason: "default"}
}

// Analyze extracts the retrieval intent from a prompt. Force phrases are
// stripped from the front before keyword extraction, so "search my notes for
// X" searches for X.
func (a *Analyzer) Analyze(prompt string) *Intent {
	query := stripForcePhrase(strings.TrimSpace(prompt))
	query = normalizeWhitespace(query)

	intent := &Intent{
		Query: query,
		Type:  detectType(query),
	}
	intent.Keywords = a.extractKeywords(query)
	intent.TimeRange = a.detectTimeRange(query)
	return intent
}

func stripForcePhrase(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, p := range forcePhrases {
		pl := strings.ToLower(p)
		if !strings.HasPrefix(lower, pl) {
			continue
		}
		rest := strings.TrimSpace(prompt[len(p):])
		rest = strings.TrimLeft(rest, ",，:：.。!！?？")
		rest = strings.TrimSpace(rest)
		for _, conn := range forceConnectives {
			cl := strings.ToLower(conn)
			restLower := strings.ToLower(rest)
			if restLower == cl {
				rest = ""
				break
			}
			if strings.HasPrefix(restLower, cl+" ") {
				rest = strings.TrimSpace(rest[len(conn)+1:])
				break
			}
			if strings.HasPrefix(rest, conn) && containsCJK(conn) {
				rest = strings.TrimSpace(rest[len(conn):])
				break
			}
		}
		if rest != "" {
			return rest
		}
		return prompt
	}
	return prompt
}

func isGreeting(prompt string) bool {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(prompt), "!！.。?？~ "))
	if _, ok := greetings[normalized]; ok {
		return true
	}
	for _, re := range greetingRes {
		if re.MatchString(prompt) {
			return true
		}
	}
	return false
}

func detectType(prompt string) string {
	trimmed := strings.TrimSpace(prompt)
	if isGreeting(trimmed) {
		return "chat"
	}
	if strings.HasPrefix(trimmed, "/") {
		return "command"
	}
	lower := strings.ToLower(trimmed)
	for _, w := range reviewWords {
		if strings.Contains(lower, w) {
			return "review"
		}
	}
	for _, w := range searchWords {
		if strings.Contains(lower, w) {
			return "search"
		}
	}
	return "query"
}

func (a *Analyzer) detectTimeRange(query string) *TimeRange {
	lower := strings.ToLower(query)
	for _, tp := range timePhrases {
		if strings.Contains(lower, tp.phrase) {
			return &TimeRange{
				Days:  tp.days,
				Since: a.now().AddDate(0, 0, -tp.days),
			}
		}
	}
	return nil
}

func (a *Analyzer) extractKeywords(query string) []string {
	maxKeywords := a.cfg.MaxKeywords
	if maxKeywords <= 0 {
		maxKeywords = 12
	}

	cleaned := stripPunctuation(query)

	var keywords []string
	seen := make(map[string]struct{})
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}

	for _, run := range cjkRuns(cleaned) {
		add(run)
		// Long spans also contribute 2-grams so partial matches still hit.
		runes := []rune(run)
		if len(runes) >= 5 {
			grams := 0
			for i := 0; i+2 <= len(runes) && grams < 20; i++ {
				add(string(runes[i : i+2]))
				grams++
			}
		}
	}

	for _, tok := range strings.Fields(strings.ToLower(cleaned)) {
		if len([]rune(tok)) <= 1 || containsCJK(tok) {
			continue
		}
		if _, stop := latinStopwords[tok]; stop {
			continue
		}
		add(tok)
	}

	// Longest first; drop Latin tokens subsumed by a longer kept token. CJK
	// keywords are kept even when nested, so entity names inside larger
	// spans survive.
	sort.SliceStable(keywords, func(i, j int) bool {
		return len([]rune(keywords[i])) > len([]rune(keywords[j]))
	})
	var kept []string
	for _, k := range keywords {
		subsumed := false
		if !containsCJK(k) {
			for _, longer := range kept {
				if !containsCJK(longer) && strings.Contains(longer, k) {
					subsumed = true
					break
				}
			}
		}
		if !subsumed {
			kept = append(kept, k)
		}
		if len(kept) >= maxKeywords {
			break
		}
	}
	return kept
}

// cjkRuns extracts runs of >=2 consecutive Han characters after removing
// framing particles.
func cjkRuns(s string) []string {
	for _, p := range cjkParticles {
		s = strings.ReplaceAll(s, p, " ")
	}

	var runs []string
	var current []rune
	flush := func() {
		if len(current) >= 2 {
			runs = append(runs, string(current))
		}
		current = current[:0]
	}
	for _, r := range s {
		if isCJK(r) {
			current = append(current, r)
		} else {
			flush()
		}
	}
	flush()
	return runs
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || isCJK(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

func containsCJK(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}
