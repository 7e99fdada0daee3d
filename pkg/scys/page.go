// Package scys extracts collection metadata from 生财有术 (scys.com) pages.
package scys

import (
	"net/url"
	"strings"
	"time"
)

// Content types recognised on the site.
const (
	TypePost    = "帖子"
	TypeArticle = "文章"
	TypeCourse  = "课程"
	TypeLive    = "直播"
)

const (
	untitled = "无标题"

	testPageMarker = "test-scys-page.html"
)

var nowFunc = time.Now

// PageInfo is what the extractor reads from a single page.
type PageInfo struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Author        string   `json:"author,omitempty"`
	ContentType   string   `json:"contentType"`
	IsFeatured    bool     `json:"isFeatured"`
	FeishuLink    string   `json:"feishuLink,omitempty"`
	PotentialTags []string `json:"potentialTags,omitempty"`
	// Timestamp is the extraction time in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// IsScysURL reports whether raw points at scys.com, one of its subdomains or
// the local test fixture page.
func IsScysURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if strings.Contains(raw, testPageMarker) {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "scys.com" || strings.HasSuffix(host, ".scys.com")
}

// BasicInfo is the minimal page data used when a page can't be extracted.
func BasicInfo(pageURL, title string) PageInfo {
	title = strings.TrimSpace(title)
	if title == "" {
		title = untitled
	}
	return PageInfo{
		Title:       title,
		URL:         strings.TrimSpace(pageURL),
		ContentType: TypeArticle,
		Timestamp:   nowFunc().UnixMilli(),
	}
}
