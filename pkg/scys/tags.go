package scys

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxTitleKeywords = 5

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields("的 是 在 了 和 与 或 但 而 就 都 要 会 能 可 以 有 无 也 不 很 更 最 一 二 三 四 五 六 七 八 九 十") {
		stopWords[w] = struct{}{}
	}
}

func isKeywordSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	return strings.ContainsRune("，。！？；：、,.!?;:", r)
}

// Keywords splits text on punctuation and whitespace and keeps the first five
// segments of 2 to 10 characters that aren't stop words.
func Keywords(text string) []string {
	var out []string
	for _, seg := range strings.FieldsFunc(text, isKeywordSeparator) {
		n := utf8.RuneCountInString(seg)
		if n < 2 || n > 10 {
			continue
		}
		if _, stop := stopWords[seg]; stop {
			continue
		}
		out = append(out, seg)
		if len(out) == maxTitleKeywords {
			break
		}
	}
	return out
}

var titleTagRules = []struct {
	tag      string
	keywords []string
}{
	{"AI", []string{"ai", "人工智能"}},
	{"SEO", []string{"seo", "搜索引擎"}},
	{"运营", []string{"运营", "营销"}},
	{"创业", []string{"创业", "商业"}},
	{"技术", []string{"技术", "开发"}},
	{"变现", []string{"赚钱", "收入", "变现"}},
}

// SuggestTags proposes tags from the content type, title keywords and the
// featured badge.
func SuggestTags(info PageInfo) []string {
	var tags []string
	switch info.ContentType {
	case TypeCourse:
		tags = append(tags, "学习", "教程")
	case TypeLive:
		tags = append(tags, "直播", "分享")
	case TypeArticle:
		tags = append(tags, "文章")
	}

	if title := strings.ToLower(info.Title); title != "" {
		for _, rule := range titleTagRules {
			for _, kw := range rule.keywords {
				if strings.Contains(title, kw) {
					tags = append(tags, rule.tag)
					break
				}
			}
		}
	}

	if info.IsFeatured {
		tags = append(tags, "精华")
	}

	set := newOrderedSet()
	for _, tag := range tags {
		set.add(tag)
	}
	return set.items
}
