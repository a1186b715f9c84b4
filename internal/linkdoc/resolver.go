// Package linkdoc pulls inline note links out of a prompt and resolves them
// to full documents. It runs independently of recall gating: a pasted link is
// an explicit request for that document.
package linkdoc

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"siyuan-recall/internal/config"
	"siyuan-recall/internal/sections"
	"siyuan-recall/internal/siyuan"
)

var (
	// Note-store block ids: 14-digit timestamp, dash, 7 base36 chars.
	idRe     = regexp.MustCompile(`\d{14}-[a-z0-9]{7}`)
	idOnlyRe = regexp.MustCompile(`^\d{14}-[a-z0-9]{7}$`)
	urlRe    = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
)

// LinkedDoc is a resolved inline link: the full sanitized markdown plus
// display metadata.
type LinkedDoc struct {
	ID        string
	HPath     string
	UpdatedAt string
	Markdown  string
}

// Resolver extracts and fetches linked documents.
type Resolver struct {
	client siyuan.API
	cfg    config.LinkedDocConfig
}

// NewResolver creates a resolver with the given link policy.
func NewResolver(client siyuan.API, cfg config.LinkedDocConfig) *Resolver {
	return &Resolver{client: client, cfg: cfg}
}

// ExtractIDs finds note ids referenced by the prompt. When hostKeywords is
// configured, only URLs whose host or full href contains a keyword are
// considered, and bare ids count only once an allowed URL has been seen.
func (r *Resolver) ExtractIDs(prompt string) []string {
	if !r.cfg.Enabled {
		return nil
	}

	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	allowedURLSeen := false
	for _, raw := range urlRe.FindAllString(prompt, -1) {
		if !r.urlAllowed(raw) {
			continue
		}
		allowedURLSeen = true
		for _, id := range idsFromURL(raw) {
			add(id)
		}
	}

	if len(r.cfg.HostKeywords) == 0 || allowedURLSeen {
		for _, id := range idRe.FindAllString(prompt, -1) {
			add(id)
		}
	}

	max := r.cfg.MaxCount
	if max <= 0 {
		max = 3
	}
	if len(ids) > max {
		ids = ids[:max]
	}
	return ids
}

func (r *Resolver) urlAllowed(raw string) bool {
	if len(r.cfg.HostKeywords) == 0 {
		return true
	}
	lowerHref := strings.ToLower(raw)
	host := ""
	if u, err := url.Parse(raw); err == nil {
		host = strings.ToLower(u.Host)
	}
	for _, kw := range r.cfg.HostKeywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(host, kw) || strings.Contains(lowerHref, kw) {
			return true
		}
	}
	return false
}

func idsFromURL(raw string) []string {
	var ids []string
	u, err := url.Parse(raw)
	if err != nil {
		return idRe.FindAllString(raw, -1)
	}
	if id := u.Query().Get("id"); idOnlyRe.MatchString(id) {
		ids = append(ids, id)
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if idOnlyRe.MatchString(seg) {
			ids = append(ids, seg)
		}
	}
	return ids
}

// Resolve fetches each id's markdown. A failing id is dropped; the rest
// still resolve. Metadata lookup is best-effort and falls back to a
// placeholder hpath.
func (r *Resolver) Resolve(ctx context.Context, ids []string) []LinkedDoc {
	var docs []LinkedDoc
	for _, id := range ids {
		kd, err := r.client.GetBlockKramdown(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch linked doc", "doc_id", id, "error", err)
			continue
		}

		doc := LinkedDoc{
			ID:       id,
			HPath:    "[linked:" + id + "]",
			Markdown: sections.Sanitize(kd.Kramdown),
		}
		if info, err := r.client.GetBlockInfo(ctx, id); err == nil {
			if info.HPath != "" {
				doc.HPath = info.HPath
			}
			doc.UpdatedAt = info.Updated
		} else {
			slog.DebugContext(ctx, "linked doc metadata unavailable", "doc_id", id, "error", err)
		}
		docs = append(docs, doc)
	}
	return docs
}
