package linkdoc

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"siyuan-recall/internal/config"
	"siyuan-recall/internal/siyuan"
	"siyuan-recall/internal/siyuan/mocks"
)

func openCfg() config.LinkedDocConfig {
	return config.LinkedDocConfig{Enabled: true, MaxCount: 3}
}

func TestExtractIDs(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.LinkedDocConfig
		prompt string
		want   []string
	}{
		{
			"id query parameter",
			openCfg(),
			"look at http://127.0.0.1:9081?id=20220802180638-lhtbfty please",
			[]string{"20220802180638-lhtbfty"},
		},
		{
			"path segment",
			openCfg(),
			"see https://notes.local/stage/20220802180638-lhtbfty for details",
			[]string{"20220802180638-lhtbfty"},
		},
		{
			"bare id without host allowlist",
			openCfg(),
			"the doc 20220802180638-lhtbfty covers this",
			[]string{"20220802180638-lhtbfty"},
		},
		{
			"dedup across url and bare text",
			openCfg(),
			"http://x.local?id=20220802180638-lhtbfty and 20220802180638-lhtbfty again",
			[]string{"20220802180638-lhtbfty"},
		},
		{
			"cap at maxCount",
			config.LinkedDocConfig{Enabled: true, MaxCount: 2},
			"20220802180638-aaaaaaa 20220802180638-bbbbbbb 20220802180638-ccccccc",
			[]string{"20220802180638-aaaaaaa", "20220802180638-bbbbbbb"},
		},
		{
			"host allowlist blocks non-matching url",
			config.LinkedDocConfig{Enabled: true, MaxCount: 3, HostKeywords: []string{"allowed.example.com"}},
			"http://127.0.0.1:9081?id=20220802180638-lhtbfty",
			nil,
		},
		{
			"host allowlist admits matching url",
			config.LinkedDocConfig{Enabled: true, MaxCount: 3, HostKeywords: []string{"allowed.example.com"}},
			"http://allowed.example.com?id=20220802180638-lhtbfty",
			[]string{"20220802180638-lhtbfty"},
		},
		{
			"allowlist blocks bare ids until an allowed url appears",
			config.LinkedDocConfig{Enabled: true, MaxCount: 3, HostKeywords: []string{"allowed.example.com"}},
			"bare 20220802180638-aaaaaaa only",
			nil,
		},
		{
			"disabled resolver extracts nothing",
			config.LinkedDocConfig{Enabled: false, MaxCount: 3},
			"http://x.local?id=20220802180638-lhtbfty",
			nil,
		},
		{
			"no ids in plain prompt",
			openCfg(),
			"how does the borrow checker work",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(nil, tt.cfg)
			got := r.ExtractIDs(tt.prompt)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractIDs() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ExtractIDs()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolveFetchesMarkdownAndMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockAPI(ctrl)
	r := NewResolver(client, openCfg())
	ctx := context.Background()

	client.EXPECT().GetBlockKramdown(gomock.Any(), "20220802180638-lhtbfty").Return(&siyuan.BlockKramdown{
		ID:       "20220802180638-lhtbfty",
		Kramdown: "# Linked\n{: id=\"20220802180638-lhtbfty\"}\nlinked body",
	}, nil)
	client.EXPECT().GetBlockInfo(gomock.Any(), "20220802180638-lhtbfty").Return(&siyuan.BlockInfo{
		HPath: "/Journal/Linked", Updated: "20260820090000",
	}, nil)

	docs := r.Resolve(ctx, []string{"20220802180638-lhtbfty"})
	if len(docs) != 1 {
		t.Fatalf("Resolve() returned %d docs, want 1", len(docs))
	}
	if docs[0].HPath != "/Journal/Linked" {
		t.Errorf("HPath = %q", docs[0].HPath)
	}
	if docs[0].Markdown != "# Linked\nlinked body" {
		t.Errorf("Markdown not sanitized: %q", docs[0].Markdown)
	}
}

func TestResolveFallsBackWhenMetadataFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockAPI(ctrl)
	r := NewResolver(client, openCfg())
	ctx := context.Background()

	client.EXPECT().GetBlockKramdown(gomock.Any(), "20220802180638-lhtbfty").Return(&siyuan.BlockKramdown{
		ID: "20220802180638-lhtbfty", Kramdown: "body",
	}, nil)
	client.EXPECT().GetBlockInfo(gomock.Any(), "20220802180638-lhtbfty").
		Return(nil, errors.New("info unavailable"))

	docs := r.Resolve(ctx, []string{"20220802180638-lhtbfty"})
	if len(docs) != 1 {
		t.Fatalf("Resolve() returned %d docs, want 1", len(docs))
	}
	if docs[0].HPath != "[linked:20220802180638-lhtbfty]" {
		t.Errorf("HPath fallback = %q", docs[0].HPath)
	}
}

func TestResolveIsolatesPerIDFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockAPI(ctrl)
	r := NewResolver(client, openCfg())
	ctx := context.Background()

	client.EXPECT().GetBlockKramdown(gomock.Any(), "20220802180638-aaaaaaa").
		Return(nil, siyuan.ErrNotFound)
	client.EXPECT().GetBlockKramdown(gomock.Any(), "20220802180638-bbbbbbb").Return(&siyuan.BlockKramdown{
		ID: "20220802180638-bbbbbbb", Kramdown: "surviving doc",
	}, nil)
	client.EXPECT().GetBlockInfo(gomock.Any(), "20220802180638-bbbbbbb").Return(&siyuan.BlockInfo{
		HPath: "/Journal/B", Updated: "20260820090000",
	}, nil)

	docs := r.Resolve(ctx, []string{"20220802180638-aaaaaaa", "20220802180638-bbbbbbb"})
	if len(docs) != 1 {
		t.Fatalf("Resolve() returned %d docs, want 1", len(docs))
	}
	if docs[0].ID != "20220802180638-bbbbbbb" {
		t.Errorf("surviving doc = %q", docs[0].ID)
	}
}
