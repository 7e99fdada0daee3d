package feishusdk

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BitableValueToString normalizes a bitable cell value read back from the
// search API into a plain string: rich text segments are joined, URL cells
// yield their text, option lists are comma separated.
func BitableValueToString(value any) string {
	return strings.TrimSpace(normalizeBitableValue(value))
}

// BitableFieldString reads a field value from a Feishu bitable row fields map as string.
func BitableFieldString(fields map[string]any, name string) string {
	if fields == nil || strings.TrimSpace(name) == "" {
		return ""
	}
	val, ok := fields[name]
	if !ok {
		return ""
	}
	return BitableValueToString(val)
}

// BitableValueToLink behaves like BitableValueToString but prefers the link
// part of URL cells, so records can be matched by the address they point to.
func BitableValueToLink(value any) string {
	switch v := value.(type) {
	case URLCell:
		if link := strings.TrimSpace(v.Link); link != "" {
			return link
		}
	case map[string]any:
		if link, ok := v["link"].(string); ok && strings.TrimSpace(link) != "" {
			return strings.TrimSpace(link)
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if part := BitableValueToLink(item); part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 && !isRichTextArray(v) {
			return strings.Join(parts, ",")
		}
	}
	return BitableValueToString(value)
}

func normalizeBitableValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case URLCell:
		if text := strings.TrimSpace(v.Text); text != "" {
			return text
		}
		return strings.TrimSpace(v.Link)
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case json.Number:
		return strings.TrimSpace(v.String())
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []any:
		return normalizeBitableArray(v)
	case map[string]any:
		return normalizeBitableObject(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func normalizeBitableArray(items []any) string {
	if len(items) == 0 {
		return ""
	}
	if isRichTextArray(items) {
		return joinRichText(items)
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		part := normalizeBitableValue(item)
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ",")
}

func normalizeBitableObject(obj map[string]any) string {
	if obj == nil {
		return ""
	}
	if nested, ok := obj["value"]; ok {
		if text := normalizeBitableValue(nested); text != "" {
			return text
		}
	}
	if nested, ok := obj["values"]; ok {
		if text := normalizeBitableValue(nested); text != "" {
			return text
		}
	}
	if nested, ok := obj["elements"]; ok {
		if text := normalizeBitableValue(nested); text != "" {
			return text
		}
	}
	if nested, ok := obj["content"]; ok {
		if text := normalizeBitableValue(nested); text != "" {
			return text
		}
	}
	if text, ok := obj["text"].(string); ok {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed
		}
	}
	if link, ok := obj["link"].(string); ok {
		if trimmed := strings.TrimSpace(link); trimmed != "" {
			return trimmed
		}
	}
	if name := pickFirstString(obj, "name", "en_name", "email", "id", "user_id"); name != "" {
		return name
	}
	if attachment := pickFirstString(obj, "name", "url", "tmp_url", "file_token"); attachment != "" {
		return attachment
	}
	if location := pickFirstString(obj, "address"); location != "" {
		return location
	}
	if b, err := json.Marshal(obj); err == nil {
		return strings.TrimSpace(string(b))
	}
	return ""
}

func isRichTextArray(items []any) bool {
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if _, hasText := m["text"]; hasText {
				return true
			}
		}
	}
	return false
}

func joinRichText(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if text, ok := m["text"].(string); ok {
				if trimmed := strings.TrimSpace(text); trimmed != "" {
					parts = append(parts, trimmed)
				}
				continue
			}
			if nested, ok := m["value"]; ok {
				if nestedText := normalizeBitableValue(nested); nestedText != "" {
					parts = append(parts, nestedText)
				}
			}
		} else if text := normalizeBitableValue(item); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}

func pickFirstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if raw, ok := obj[key]; ok {
			if text := normalizeBitableValue(raw); text != "" {
				return text
			}
		}
	}
	return ""
}

func formatFloat(v float64) string {
	if math.Mod(v, 1) == 0 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
