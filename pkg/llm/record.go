package llm

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Record is one loosely-typed object decoded from a model response. Fields
// are validated downstream when records are assembled into typed results.
type Record map[string]any

// String returns the value for key if it is present and a string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// StringOr returns the string value for key, or def when absent or not a
// string.
func (r Record) StringOr(key, def string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return def
}

// StringSlice returns the value for key coerced to a string slice. Non-string
// elements are skipped; absent or mistyped values yield an empty slice.
func (r Record) StringSlice(key string) []string {
	items, ok := r[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ExtractRecords decodes the JSON array embedded in a model response. The
// array is located by the first '[' and last ']'; when no brackets are found
// the whole response is parsed. Decode failures yield an empty slice so the
// pipeline degrades instead of aborting.
func ExtractRecords(raw string) []Record {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")

	payload := raw
	if start >= 0 && end > start {
		payload = raw[start : end+1]
	}

	var out []Record
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		zap.L().Error("parsing model response",
			zap.Error(err),
			zap.String("response", truncate(raw, 500)),
		)
		return []Record{}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
