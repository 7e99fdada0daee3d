package feishusdk

import "testing"

func TestNewCondition_IsNotEmptyRequiresValue(t *testing.T) {
	cond := NewCondition("生财链接", "isNotEmpty")
	if cond == nil {
		t.Fatalf("expected condition")
	}
	if len(cond.Value) != 1 || cond.Value[0] != "" {
		t.Fatalf("expected Value to be [\"\"], got %#v", cond.Value)
	}
}

func TestNewCondition_ContainsKeepsValues(t *testing.T) {
	cond := NewCondition(" 生财链接 ", "contains", "https://scys.com/p/1")
	if cond == nil || *cond.FieldName != "生财链接" || *cond.Operator != "contains" {
		t.Fatalf("unexpected condition %#v", cond)
	}
	if len(cond.Value) != 1 || cond.Value[0] != "https://scys.com/p/1" {
		t.Fatalf("unexpected value %#v", cond.Value)
	}
}

func TestNewCondition_EmptyFieldIsDropped(t *testing.T) {
	filter := NewFilterInfo("", NewCondition("  ", "is", "x"))
	if *filter.Conjunction != "and" || len(filter.Conditions) != 0 {
		t.Fatalf("unexpected filter %#v", filter)
	}
}

func TestCloneFilterCopiesConditions(t *testing.T) {
	orig := NewFilterInfo("AND", NewCondition("标题", "is", "A"))
	cloned := CloneFilter(orig)
	cloned.Conditions[0].Value[0] = "B"
	*cloned.Conditions[0].FieldName = "作者"
	if orig.Conditions[0].Value[0] != "A" || *orig.Conditions[0].FieldName != "标题" {
		t.Fatalf("clone must not share condition state")
	}
	if *cloned.Conjunction != "and" {
		t.Fatalf("conjunction should be normalized, got %q", *cloned.Conjunction)
	}
	if CloneFilter(nil) != nil {
		t.Fatalf("nil filter should clone to nil")
	}
}
