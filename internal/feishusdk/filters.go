package feishusdk

import (
	"strings"

	bitablev1 "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"
)

// FilterInfo aliases the Feishu SDK filter structure so callers don't have to import the SDK directly.
type (
	FilterInfo = bitablev1.FilterInfo
	Condition  = bitablev1.Condition
)

func newStringPtr(val string) *string {
	v := val
	return &v
}

// NewFilterInfo constructs a filter with the provided conjunction (defaults to "and")
// and the non-nil conditions.
func NewFilterInfo(conjunction string, conds ...*Condition) *FilterInfo {
	if strings.TrimSpace(conjunction) == "" {
		conjunction = "and"
	}
	filter := &FilterInfo{Conjunction: newStringPtr(strings.ToLower(strings.TrimSpace(conjunction)))}
	for _, cond := range conds {
		if cond != nil {
			filter.Conditions = append(filter.Conditions, cond)
		}
	}
	return filter
}

// NewCondition creates a Condition node with the provided operator and values.
func NewCondition(field, operator string, values ...string) *Condition {
	fieldName := strings.TrimSpace(field)
	if fieldName == "" {
		return nil
	}
	op := strings.TrimSpace(operator)
	if op == "" {
		op = "is"
	}
	cond := &Condition{FieldName: newStringPtr(fieldName), Operator: newStringPtr(op)}
	if len(values) > 0 {
		cond.Value = append([]string(nil), values...)
		return cond
	}
	// Unary operators still need a Value, otherwise the API answers
	// 400 "Missing required parameter: Value".
	switch strings.ToLower(op) {
	case "isnotempty", "isempty":
		cond.Value = []string{""}
	}
	return cond
}

// CloneFilter performs a deep copy of the top-level conditions so callers can
// safely mutate filters.
func CloneFilter(filter *FilterInfo) *FilterInfo {
	if filter == nil {
		return nil
	}
	cloned := &FilterInfo{}
	if filter.Conjunction != nil {
		cloned.Conjunction = newStringPtr(strings.ToLower(strings.TrimSpace(*filter.Conjunction)))
	}
	for _, cond := range filter.Conditions {
		if cond == nil {
			continue
		}
		cc := *cond
		if cond.FieldName != nil {
			cc.FieldName = newStringPtr(*cond.FieldName)
		}
		if cond.Operator != nil {
			cc.Operator = newStringPtr(*cond.Operator)
		}
		if len(cond.Value) > 0 {
			cc.Value = append([]string(nil), cond.Value...)
		}
		cloned.Conditions = append(cloned.Conditions, &cc)
	}
	cloned.Children = append(cloned.Children, filter.Children...)
	return cloned
}
