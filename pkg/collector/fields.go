package collector

import (
	"strings"

	"github.com/httprunner/ScysCollector/internal/feishusdk"
)

// FieldRule lists the remote column names tried for a logical field, in
// priority order.
type FieldRule struct {
	Logical    string
	Candidates []string
}

// DefaultFieldRules holds the candidate names used by Mapper.
var DefaultFieldRules = []FieldRule{
	{FieldTitle, []string{"文章名称", "标题", "title", "名称"}},
	{FieldType, []string{"类型", "type", "分类"}},
	{FieldAuthor, []string{"作者", "author", "发布者"}},
	{FieldFeatured, []string{"精华", "是否精华", "featured", "标记"}},
	{FieldIsRead, []string{"阅读", "是否已阅读", "isRead", "已阅读"}},
	{FieldURL, []string{"生财链接", "原链接", "url", "链接"}},
	{FieldFeishuLink, []string{"飞书链接", "飞书文档", "文档链接", "feishu"}},
	{FieldInspiration, []string{"启发感悟", "感悟", "备注", "说明", "note"}},
	{FieldTags, []string{"标签", "tags", "分类标签", "tag"}},
	{FieldTimestamp, []string{"timestamp"}},
}

// candidatesFor returns the candidate names of logical, defaulting to the
// logical name itself.
func candidatesFor(rules []FieldRule, logical string) []string {
	for _, rule := range rules {
		if rule.Logical == logical {
			return rule.Candidates
		}
	}
	return []string{logical}
}

// nameMatches compares case-insensitively: equal names match, and so do names
// where one contains the other.
func nameMatches(remote, candidate string) bool {
	r := strings.ToLower(strings.TrimSpace(remote))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if r == "" || c == "" {
		return false
	}
	return r == c || strings.Contains(r, c) || strings.Contains(c, r)
}

// Resolve finds the schema field for the candidates. The first candidate with
// any match wins, and within one candidate the earliest field in schema order.
func Resolve(candidates []string, schema []feishusdk.Field) (feishusdk.Field, bool) {
	for _, candidate := range candidates {
		for _, field := range schema {
			if nameMatches(field.Name, candidate) {
				return field, true
			}
		}
	}
	return feishusdk.Field{}, false
}
