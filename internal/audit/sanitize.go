package audit

import (
	"fmt"
	"strings"
)

const (
	redactionMarker  = "***REDACTED***"
	truncationMarker = "... (truncated)"
	maxStringLen     = 1000 // runes, before truncation
	maxListLen       = 100  // elements kept from any slice
)

// Sensitive keys redacted regardless of value, matched case-insensitively.
var sensitiveKeys = map[string]bool{
	"password": true,
	"api_key":  true,
	"token":    true,
	"secret":   true,
}

// Sanitize prepares arbitrary data for audit persistence. It redacts
// sensitive keys, truncates long strings, caps slices at 100 elements,
// recurses into nested maps and slices, and stringifies anything that is
// not a JSON-friendly primitive or container. A primitive or slice at the
// top level is wrapped as {"value": v} so the result is always a map.
//
// Sanitize is idempotent: applying it to already-sanitized data returns
// an equal result.
func Sanitize(data any) map[string]any {
	switch v := data.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return sanitizeMap(v)
	default:
		return map[string]any{"value": sanitizeValue(v)}
	}
}

func sanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		if sensitiveKeys[strings.ToLower(key)] {
			out[key] = redactionMarker
			continue
		}
		out[key] = sanitizeValue(value)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return truncate(val)
	case bool, int, int32, int64, float32, float64:
		return val
	case map[string]any:
		return sanitizeMap(val)
	case []any:
		if len(val) > maxListLen {
			val = val[:maxListLen]
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	case []string:
		return sanitizeValue(toAnySlice(val))
	case []map[string]any:
		return sanitizeValue(mapsToAnySlice(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStringLen {
		return s
	}
	return string(runes[:maxStringLen]) + truncationMarker
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func mapsToAnySlice(items []map[string]any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
