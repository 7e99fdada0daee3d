package feishusdk

import "testing"

func TestBitableValueToString(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"text", "hello", "hello"},
		{"number", 123.45, "123.45"},
		{"int", 123, "123"},
		{"bool", true, "true"},
		{"multi-select", []any{"AI", "创业"}, "AI,创业"},
		{"rich-text", []any{map[string]any{"text": "foo"}, map[string]any{"text": "bar"}}, "foo bar"},
		{"link", map[string]any{"text": "帖子", "link": "https://scys.com/articleDetail/xq_topic/1"}, "帖子"},
		{"url-cell", URLCell{Text: "t", Link: "https://l"}, "t"},
		{"wrapper", map[string]any{"type": 1, "value": []any{map[string]any{"text": "wrapped"}}}, "wrapped"},
	}
	for _, tt := range tests {
		if got := BitableValueToString(tt.input); got != tt.want {
			t.Fatalf("%s: got %q want %q", tt.name, got, tt.want)
		}
	}
}

func TestBitableValueToLink(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"plain", "https://scys.com/a", "https://scys.com/a"},
		{"link-object", map[string]any{"text": "title", "link": "https://scys.com/b"}, "https://scys.com/b"},
		{"url-cell", URLCell{Text: "x", Link: "https://scys.com/c"}, "https://scys.com/c"},
		{"rich-text", []any{map[string]any{"text": "https://scys.com/d"}}, "https://scys.com/d"},
	}
	for _, tt := range tests {
		if got := BitableValueToLink(tt.input); got != tt.want {
			t.Fatalf("%s: got %q want %q", tt.name, got, tt.want)
		}
	}
}

func TestBitableFieldString(t *testing.T) {
	fields := map[string]any{"标题": []any{map[string]any{"text": "A"}}}
	if got := BitableFieldString(fields, "标题"); got != "A" {
		t.Fatalf("got %q want A", got)
	}
	if got := BitableFieldString(fields, "missing"); got != "" {
		t.Fatalf("missing field should be empty, got %q", got)
	}
}
