package siyuan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// normalizeWriteResult folds the write-endpoint data shapes observed across
// store versions into a single id. Known shapes:
//
//	"20240101...-abcdefg"              bare id string
//	{"id": "..."}                      object
//	{"ids": ["...", ...]}              id bag
//	[{"id": "..."}, ...]               array of objects
//	[{"doOperations": [{"id": ...}]}]  transaction result
//
// Anything else fails with ErrProtocol.
func normalizeWriteResult(raw json.RawMessage) (*WriteResult, error) {
	if id, ok := extractID(raw); ok {
		return &WriteResult{ID: id}, nil
	}
	return nil, fmt.Errorf("%w: write result %s", ErrProtocol, truncateRaw(raw))
}

func extractID(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}

	switch trimmed[0] {
	case '"':
		var id string
		if err := json.Unmarshal(raw, &id); err != nil || id == "" {
			return "", false
		}
		return id, true

	case '{':
		var obj struct {
			ID  string            `json:"id"`
			IDs []string          `json:"ids"`
			Ops []json.RawMessage `json:"doOperations"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", false
		}
		if obj.ID != "" {
			return obj.ID, true
		}
		if len(obj.IDs) > 0 && obj.IDs[0] != "" {
			return obj.IDs[0], true
		}
		if len(obj.Ops) > 0 {
			return extractID(obj.Ops[0])
		}
		return "", false

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", false
		}
		for _, item := range items {
			if id, ok := extractID(item); ok {
				return id, true
			}
		}
		return "", false

	default:
		return "", false
	}
}

func truncateRaw(raw json.RawMessage) string {
	s := string(raw)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
