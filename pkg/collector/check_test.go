package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/httprunner/ScysCollector/internal/feishusdk"
)

func TestFindByURLSearchesURLColumn(t *testing.T) {
	fake := &fakeBackend{
		schema: fullSchema,
		rows: []feishusdk.BitableRow{{
			RecordID: "rec1",
			Fields: map[string]any{
				"标题":   "旧文章",
				"生财链接": map[string]any{"text": "链接", "link": "https://scys.com/p/1"},
			},
		}},
	}
	matches, err := NewChecker(fake).FindByURL(context.Background(), testSettings(), " https://scys.com/p/1 ")
	if err != nil {
		t.Fatalf("FindByURL error: %v", err)
	}
	if len(matches) != 1 || matches[0].RecordID != "rec1" || matches[0].Title != "旧文章" || matches[0].URL != "https://scys.com/p/1" {
		t.Fatalf("unexpected matches %#v", matches)
	}
	if len(fake.searches) != 1 {
		t.Fatalf("expected one search, got %d", len(fake.searches))
	}
	opts := fake.searches[0]
	if opts.Limit != maxDuplicateMatches || opts.Filter == nil || len(opts.Filter.Conditions) != 1 {
		t.Fatalf("unexpected search options %#v", opts)
	}
	cond := opts.Filter.Conditions[0]
	if *cond.FieldName != "生财链接" || *cond.Operator != "contains" || len(cond.Value) != 1 || cond.Value[0] != "https://scys.com/p/1" {
		t.Fatalf("unexpected condition field=%s op=%s value=%v", *cond.FieldName, *cond.Operator, cond.Value)
	}
}

func TestFindByURLWithoutURLColumn(t *testing.T) {
	fake := &fakeBackend{schema: []feishusdk.Field{{Name: "标题", Type: feishusdk.FieldTypeText}}}
	_, err := NewChecker(fake).FindByURL(context.Background(), testSettings(), "https://scys.com/p/1")
	if !errors.Is(err, ErrNoURLField) {
		t.Fatalf("expected ErrNoURLField, got %v", err)
	}
	if len(fake.searches) != 0 {
		t.Fatalf("no search expected")
	}
}

func TestFindByURLRejectsEmptyURL(t *testing.T) {
	fake := &fakeBackend{schema: fullSchema}
	if _, err := NewChecker(fake).FindByURL(context.Background(), testSettings(), "  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if fake.tokenCalls != 0 {
		t.Fatalf("empty url must not reach feishu")
	}
}

func TestFindByURLSearchFailure(t *testing.T) {
	fake := &fakeBackend{schema: fullSchema, searchErr: errors.New("timeout")}
	if _, err := NewChecker(fake).FindByURL(context.Background(), testSettings(), "https://scys.com/p/1"); err == nil {
		t.Fatalf("expected search error")
	}
}
