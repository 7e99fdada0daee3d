package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/httprunner/ScysCollector/internal/feishusdk"
)

func TestConnectionReportResolvesFields(t *testing.T) {
	fake := &fakeBackend{schema: fullSchema}
	report, err := TestConnection(context.Background(), fake, testSettings())
	if err != nil {
		t.Fatalf("TestConnection error: %v", err)
	}
	if len(report.Fields) != len(fullSchema) {
		t.Fatalf("unexpected field count %d", len(report.Fields))
	}
	want := map[string]string{
		FieldTitle:       "标题",
		FieldType:        "类型",
		FieldAuthor:      "作者",
		FieldFeatured:    "精华",
		FieldIsRead:      "是否已阅读",
		FieldURL:         "生财链接",
		FieldFeishuLink:  "飞书链接",
		FieldInspiration: "启发感悟",
		FieldTags:        "标签",
	}
	for logical, remote := range want {
		if report.Resolved[logical] != remote {
			t.Fatalf("%s resolved to %q, want %q", logical, report.Resolved[logical], remote)
		}
	}
	if _, ok := report.Resolved[FieldTimestamp]; ok {
		t.Fatalf("timestamp has no column in this schema")
	}
}

func TestConnectionReportPropagatesAuthError(t *testing.T) {
	fake := &fakeBackend{tokenErr: &feishusdk.APIError{Code: 10003, Msg: "invalid param"}}
	_, err := TestConnection(context.Background(), fake, testSettings())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}
