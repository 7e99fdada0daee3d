package scys

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const maxPotentialTags = 10

var titleSelectors = []string{
	`div[data-v-354154f6].post-title`,
	`.post-title`,
	`div.post-title`,
	`[class*="post-title"]`,
	`h1.title`,
	`h1`,
	`.article-title`,
	`.content-title`,
}

var authorSelectors = []string{
	`div[data-v-3eb8b42f].name-identity span[data-v-3eb8b42f].name`,
	`.name-identity .name`,
	`span[data-v-3eb8b42f].name`,
	`.name-identity span.name`,
	`div.name-identity span.name`,
	`[class*="name-identity"] [class*="name"]`,
	`.author-name`,
	`.post-author`,
	`.username`,
	`.user-name`,
	`.author`,
}

var eliteSelectors = []string{
	`div[data-v-354154f6].elite-icon`,
	`.elite-icon`,
	`div.elite-icon`,
	`[class*="elite-icon"]`,
	`[class*="elite"]`,
	`.featured-icon`,
	`[class*="featured"]`,
}

var feishuSelectors = []string{
	`a[href*="feishu.cn"]`,
	`a[href*="feishu.com"]`,
	`a[href*="larksuite.com"]`,
}

var tagSelectors = []string{
	`.tag`,
	`.tags`,
	`.category`,
	`.label`,
	`[class*="tag"]`,
	`[class*="category"]`,
}

var displayNone = regexp.MustCompile(`display\s*:\s*none`)

// Extract reads page metadata from doc. pageURL is the address the document
// was loaded from; it drives content type detection and link resolution.
func Extract(doc *goquery.Document, pageURL string) PageInfo {
	title := ExtractTitle(doc)
	info := PageInfo{
		Title:         title,
		URL:           strings.TrimSpace(pageURL),
		Author:        ExtractAuthor(doc),
		ContentType:   DetectContentType(doc, pageURL),
		IsFeatured:    IsFeatured(doc),
		FeishuLink:    ExtractFeishuLink(doc, pageURL),
		PotentialTags: PotentialTags(doc, pageURL, title),
		Timestamp:     nowFunc().UnixMilli(),
	}
	log.Debug().
		Str("title", info.Title).
		Str("author", info.Author).
		Str("type", info.ContentType).
		Bool("featured", info.IsFeatured).
		Int("tags", len(info.PotentialTags)).
		Msg("scys: extracted page info")
	return info
}

// firstText returns the trimmed text of the first element matched by the
// first selector whose first match has any text.
func firstText(doc *goquery.Document, selectors []string) (string, string) {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text, sel
		}
	}
	return "", ""
}

// ExtractTitle falls back to <title> and then to "无标题".
func ExtractTitle(doc *goquery.Document) string {
	if title, sel := firstText(doc, titleSelectors); title != "" {
		log.Debug().Str("selector", sel).Msg("scys: title matched")
		return title
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return untitled
}

func ExtractAuthor(doc *goquery.Document) string {
	author, _ := firstText(doc, authorSelectors)
	return author
}

// IsFeatured reports whether the page shows a visible elite badge. Only the
// first element of each selector is inspected.
func IsFeatured(doc *goquery.Document) bool {
	for _, sel := range eliteSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if isVisible(el) {
			log.Debug().Str("selector", sel).Msg("scys: elite badge found")
			return true
		}
	}
	return false
}

func isVisible(sel *goquery.Selection) bool {
	hidden := func(s *goquery.Selection) bool {
		if _, ok := s.Attr("hidden"); ok {
			return true
		}
		style, _ := s.Attr("style")
		return displayNone.MatchString(strings.ToLower(style))
	}
	if hidden(sel) {
		return false
	}
	visible := true
	sel.Parents().EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if hidden(p) {
			visible = false
			return false
		}
		return true
	})
	return visible
}

// ExtractFeishuLink returns the first Feishu/Lark document link, absolute.
func ExtractFeishuLink(doc *goquery.Document, pageURL string) string {
	base, _ := url.Parse(strings.TrimSpace(pageURL))
	for _, sel := range feishuSelectors {
		href, ok := doc.Find(sel).First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			continue
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				return base.ResolveReference(ref).String()
			}
		}
		return href
	}
	return ""
}

// DetectContentType classifies the page by its URL first and its body text
// second, defaulting to 文章.
func DetectContentType(doc *goquery.Document, pageURL string) string {
	for _, rule := range []struct {
		marker string
		kind   string
	}{
		{"post", TypePost},
		{"article", TypeArticle},
		{"course", TypeCourse},
		{"live", TypeLive},
	} {
		if strings.Contains(pageURL, rule.marker) {
			return rule.kind
		}
	}
	if doc != nil {
		body := strings.ToLower(doc.Find("body").Text())
		if strings.Contains(body, "课程") || strings.Contains(body, "教程") {
			return TypeCourse
		}
		if strings.Contains(body, "直播") || strings.Contains(body, "live") {
			return TypeLive
		}
	}
	return TypeArticle
}

// PotentialTags gathers candidate tags from the URL path, the title and
// tag-like elements, de-duplicated in discovery order.
func PotentialTags(doc *goquery.Document, pageURL, title string) []string {
	set := newOrderedSet()
	if u, err := url.Parse(strings.TrimSpace(pageURL)); err == nil {
		for _, part := range strings.Split(u.Path, "/") {
			if utf8.RuneCountInString(part) > 2 && !allDigits(part) {
				set.add(part)
			}
		}
	}
	for _, kw := range Keywords(title) {
		set.add(kw)
	}
	if doc != nil {
		for _, sel := range tagSelectors {
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				text := strings.TrimSpace(s.Text())
				if text != "" && utf8.RuneCountInString(text) < 20 {
					set.add(text)
				}
			})
		}
	}
	return set.first(maxPotentialTags)
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(item string) {
	if _, ok := s.seen[item]; ok {
		return
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
}

func (s *orderedSet) first(n int) []string {
	if len(s.items) > n {
		return s.items[:n]
	}
	return s.items
}
