// Package collector maps collected page records onto a Feishu Bitable schema
// and submits them.
package collector

import (
	"strings"
	"time"

	"github.com/httprunner/ScysCollector/pkg/scys"
)

// Enum strings used by the featured and isRead fields.
const (
	Yes = "是"
	No  = "否"
)

// Logical field names, in the order records are mapped.
const (
	FieldTitle       = "title"
	FieldType        = "type"
	FieldAuthor      = "author"
	FieldFeatured    = "featured"
	FieldIsRead      = "isRead"
	FieldURL         = "url"
	FieldFeishuLink  = "feishuLink"
	FieldInspiration = "inspiration"
	FieldTags        = "tags"
	FieldTimestamp   = "timestamp"
)

// LogicalFields lists every logical field in mapping order.
var LogicalFields = []string{
	FieldTitle,
	FieldType,
	FieldAuthor,
	FieldFeatured,
	FieldIsRead,
	FieldURL,
	FieldFeishuLink,
	FieldInspiration,
	FieldTags,
	FieldTimestamp,
}

// Record is one collected item before it is mapped onto a remote table.
type Record struct {
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Author      string   `json:"author,omitempty"`
	Featured    string   `json:"featured,omitempty"`
	IsRead      string   `json:"isRead,omitempty"`
	URL         string   `json:"url,omitempty"`
	FeishuLink  string   `json:"feishuLink,omitempty"`
	Inspiration string   `json:"inspiration,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// Timestamp is the collection time in unix milliseconds.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Entry is a non-empty logical value.
type Entry struct {
	Field string
	Value any
}

// Entries returns the non-empty logical values in mapping order. Strings are
// kept as-is; only empty strings, empty tag lists and a zero timestamp are
// left out.
func (r Record) Entries() []Entry {
	out := make([]Entry, 0, len(LogicalFields))
	add := func(field, value string) {
		if value != "" {
			out = append(out, Entry{Field: field, Value: value})
		}
	}
	add(FieldTitle, r.Title)
	add(FieldType, r.Type)
	add(FieldAuthor, r.Author)
	add(FieldFeatured, r.Featured)
	add(FieldIsRead, r.IsRead)
	add(FieldURL, r.URL)
	add(FieldFeishuLink, r.FeishuLink)
	add(FieldInspiration, r.Inspiration)
	if len(r.Tags) > 0 {
		out = append(out, Entry{Field: FieldTags, Value: append([]string(nil), r.Tags...)})
	}
	if r.Timestamp != 0 {
		out = append(out, Entry{Field: FieldTimestamp, Value: r.Timestamp})
	}
	return out
}

// Value returns the logical value of field, or false when it's empty.
func (r Record) Value(field string) (any, bool) {
	for _, e := range r.Entries() {
		if e.Field == field {
			return e.Value, true
		}
	}
	return nil, false
}

// Validate checks the fields a user has to provide before saving.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: FieldTitle, Reason: "请输入文章标题"}
	}
	if strings.TrimSpace(r.Type) == "" {
		return &ValidationError{Field: FieldType, Reason: "请选择内容类型"}
	}
	return nil
}

// YesNo renders b as 是/否.
func YesNo(b bool) string {
	if b {
		return Yes
	}
	return No
}

// RecordFromPage prefills a record from extracted page info. isRead starts
// as 否 and tags come from the page's suggestions.
func RecordFromPage(info scys.PageInfo) Record {
	ts := info.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	return Record{
		Title:      info.Title,
		Type:       info.ContentType,
		Author:     info.Author,
		Featured:   YesNo(info.IsFeatured),
		IsRead:     No,
		URL:        info.URL,
		FeishuLink: info.FeishuLink,
		Tags:       scys.SuggestTags(info),
		Timestamp:  ts,
	}
}
