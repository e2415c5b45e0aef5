package engine

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Store backends return scan values with backend-specific types (jsonb
// decodes to map[string]any, SQLite hands back int64, the in-memory fake
// returns whatever was stored). These helpers narrow them.

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, eris.Errorf("engine: unexpected id type %T", v)
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []byte:
		var out []string
		if err := json.Unmarshal(vv, &out); err == nil {
			return out
		}
		return nil
	default:
		return nil
	}
}

func asMap(v any) map[string]any {
	switch vv := v.(type) {
	case map[string]any:
		return vv
	case []byte:
		var out map[string]any
		if err := json.Unmarshal(vv, &out); err == nil {
			return out
		}
		return nil
	default:
		return nil
	}
}
