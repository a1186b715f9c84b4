package siyuan

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_api.go -package=mocks siyuan-recall/internal/siyuan API

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API is the note-store surface the rest of the sidecar consumes. The
// concrete Client implements it; tests substitute a gomock mock.
type API interface {
	// HealthCheck probes the store. It never returns an error; failures are
	// reported through the result.
	HealthCheck(ctx context.Context) HealthStatus
	// SQL forwards a read-only SQL statement and returns the raw rows.
	SQL(ctx context.Context, stmt string) ([]map[string]any, error)
	// SearchFullText runs the store's native full-text search.
	SearchFullText(ctx context.Context, query string, opts FullTextOptions) ([]Block, error)
	// GetBlockInfo fetches display metadata for a block.
	GetBlockInfo(ctx context.Context, id string) (*BlockInfo, error)
	// GetBlockKramdown fetches a block's canonical markdown source.
	GetBlockKramdown(ctx context.Context, id string) (*BlockKramdown, error)
	// ListNotebooks lists all notebooks.
	ListNotebooks(ctx context.Context) ([]Notebook, error)

	// Write side, used by the conversation writer.
	AppendBlock(ctx context.Context, parentID, markdown string) (*WriteResult, error)
	UpdateBlock(ctx context.Context, id, markdown string) (*WriteResult, error)
	CreateDocWithMarkdown(ctx context.Context, notebook, path, markdown string) (*WriteResult, error)
	SetBlockAttrs(ctx context.Context, id string, attrs map[string]string) error
	GetDocByPath(ctx context.Context, notebook, path string) (string, error)
}

// Client is a typed wrapper over the note store's HTTP API. All calls POST
// JSON with a token header and share the envelope {code,msg,data}.
type Client struct {
	BaseURL string
	Token   string
	client  *http.Client
}

// NewClient creates a new note-store client with the given request timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

var _ API = (*Client)(nil)

// post sends one API call and decodes data into out (when out is non-nil).
// Non-zero envelope codes become *RemoteError.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Token "+c.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", ErrProtocol, resp.StatusCode, string(raw))
	}

	var env struct {
		Code int             `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if env.Code != 0 {
		return &RemoteError{Code: env.Code, Msg: env.Msg}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
	}
	return nil
}

// postRaw is post without decoding data, returning it raw for callers that
// need to normalize version-dependent shapes themselves.
func (c *Client) postRaw(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.post(ctx, path, payload, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// HealthCheck probes /api/system/version. Timeouts and connection failures
// map to Available=false; the handler must never crash on a down store.
func (c *Client) HealthCheck(ctx context.Context) HealthStatus {
	var version string
	if err := c.post(ctx, "/api/system/version", map[string]any{}, &version); err != nil {
		return HealthStatus{Available: false, Err: err.Error()}
	}
	return HealthStatus{Available: true, Version: version}
}

// SQL forwards a SQL statement to /api/query/sql. Rows come back as loose
// maps; callers coalesce the column spellings they care about.
func (c *Client) SQL(ctx context.Context, stmt string) ([]map[string]any, error) {
	var rows []map[string]any
	if err := c.post(ctx, "/api/query/sql", map[string]any{"stmt": stmt}, &rows); err != nil {
		return nil, fmt.Errorf("sql query failed: %w", err)
	}
	return rows, nil
}

// SearchFullText runs /api/search/fullTextSearchBlock and returns data.blocks.
func (c *Client) SearchFullText(ctx context.Context, query string, opts FullTextOptions) ([]Block, error) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Size <= 0 {
		opts.Size = 20
	}
	payload := map[string]any{
		"query": query,
		"page":  opts.Page,
		"size":  opts.Size,
	}
	if opts.Sort != 0 {
		payload["sort"] = opts.Sort
	}

	var data struct {
		Blocks []Block `json:"blocks"`
	}
	if err := c.post(ctx, "/api/search/fullTextSearchBlock", payload, &data); err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	return data.Blocks, nil
}

// GetBlockInfo fetches hpath and updated metadata for a block. A rejection
// naming a missing id maps to ErrNotFound.
func (c *Client) GetBlockInfo(ctx context.Context, id string) (*BlockInfo, error) {
	var info BlockInfo
	if err := c.post(ctx, "/api/block/getBlockInfo", map[string]any{"id": id}, &info); err != nil {
		return nil, remoteToNotFound(id, err)
	}
	return &info, nil
}

// GetBlockKramdown fetches the canonical markdown source of a block.
func (c *Client) GetBlockKramdown(ctx context.Context, id string) (*BlockKramdown, error) {
	var kd BlockKramdown
	if err := c.post(ctx, "/api/block/getBlockKramdown", map[string]any{"id": id}, &kd); err != nil {
		return nil, remoteToNotFound(id, err)
	}
	if kd.ID == "" {
		kd.ID = id
	}
	return &kd, nil
}

// ListNotebooks lists all notebooks via /api/notebook/lsNotebooks.
func (c *Client) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	var data struct {
		Notebooks []Notebook `json:"notebooks"`
	}
	if err := c.post(ctx, "/api/notebook/lsNotebooks", map[string]any{}, &data); err != nil {
		return nil, fmt.Errorf("failed to list notebooks: %w", err)
	}
	return data.Notebooks, nil
}

// AppendBlock appends markdown under a parent block.
func (c *Client) AppendBlock(ctx context.Context, parentID, markdown string) (*WriteResult, error) {
	raw, err := c.postRaw(ctx, "/api/block/appendBlock", map[string]any{
		"parentID": parentID,
		"dataType": "markdown",
		"data":     markdown,
	})
	if err != nil {
		return nil, fmt.Errorf("append block failed: %w", err)
	}
	return normalizeWriteResult(raw)
}

// UpdateBlock replaces a block's markdown.
func (c *Client) UpdateBlock(ctx context.Context, id, markdown string) (*WriteResult, error) {
	raw, err := c.postRaw(ctx, "/api/block/updateBlock", map[string]any{
		"id":       id,
		"dataType": "markdown",
		"data":     markdown,
	})
	if err != nil {
		return nil, fmt.Errorf("update block failed: %w", err)
	}
	return normalizeWriteResult(raw)
}

// CreateDocWithMarkdown creates a document at the given hpath.
func (c *Client) CreateDocWithMarkdown(ctx context.Context, notebook, path, markdown string) (*WriteResult, error) {
	raw, err := c.postRaw(ctx, "/api/filetree/createDocWithMd", map[string]any{
		"notebook": notebook,
		"path":     path,
		"markdown": markdown,
	})
	if err != nil {
		return nil, fmt.Errorf("create doc failed: %w", err)
	}
	return normalizeWriteResult(raw)
}

// SetBlockAttrs sets custom attributes on a block.
func (c *Client) SetBlockAttrs(ctx context.Context, id string, attrs map[string]string) error {
	if err := c.post(ctx, "/api/attr/setBlockAttrs", map[string]any{"id": id, "attrs": attrs}, nil); err != nil {
		return fmt.Errorf("set block attrs failed: %w", err)
	}
	return nil
}

// GetDocByPath resolves a document id from a notebook and hpath.
func (c *Client) GetDocByPath(ctx context.Context, notebook, path string) (string, error) {
	var ids []string
	err := c.post(ctx, "/api/filetree/getIDsByHPath", map[string]any{
		"notebook": notebook,
		"path":     path,
	}, &ids)
	if err != nil {
		return "", fmt.Errorf("get doc by path failed: %w", err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("doc %s%s: %w", notebook, path, ErrNotFound)
	}
	return ids[0], nil
}

// remoteToNotFound maps envelope rejections that name a missing block to
// ErrNotFound. Other rejections (auth, validation) keep their RemoteError so
// callers can retry or surface them.
func remoteToNotFound(id string, err error) error {
	var re *RemoteError
	if !errors.As(err, &re) {
		return err
	}
	msg := strings.ToLower(re.Msg)
	if strings.Contains(msg, "not found") || strings.Contains(msg, "not exist") ||
		strings.Contains(re.Msg, "不存在") {
		return fmt.Errorf("block %s: %w", id, ErrNotFound)
	}
	return err
}
