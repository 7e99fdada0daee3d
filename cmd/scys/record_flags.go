package main

import (
	"strings"

	"github.com/httprunner/ScysCollector/pkg/collector"
	"github.com/spf13/cobra"
)

// recordFlags are the form fields a user can set on top of extracted data.
type recordFlags struct {
	title       string
	contentType string
	author      string
	url         string
	feishuLink  string
	inspiration string
	tags        []string
	featured    string
	read        string
}

func (f *recordFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "标题，覆盖页面提取结果")
	cmd.Flags().StringVar(&f.contentType, "type", "", "内容类型：帖子/文章/课程/直播")
	cmd.Flags().StringVar(&f.author, "author", "", "作者")
	cmd.Flags().StringVar(&f.url, "url", "", "生财链接")
	cmd.Flags().StringVar(&f.feishuLink, "feishu-link", "", "飞书文档链接")
	cmd.Flags().StringVar(&f.inspiration, "inspiration", "", "启发感悟")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "标签，逗号分隔，替换推荐标签")
	cmd.Flags().StringVar(&f.featured, "featured", "", "是否精华：是/否")
	cmd.Flags().StringVar(&f.read, "read", "", "是否已阅读：是/否")
}

// apply overrides rec with every flag that was set.
func (f *recordFlags) apply(rec *collector.Record) error {
	set := func(dst *string, val string) {
		if v := strings.TrimSpace(val); v != "" {
			*dst = v
		}
	}
	set(&rec.Title, f.title)
	set(&rec.Type, f.contentType)
	set(&rec.Author, f.author)
	set(&rec.URL, f.url)
	set(&rec.FeishuLink, f.feishuLink)
	set(&rec.Inspiration, f.inspiration)
	if f.tags != nil {
		var tags []string
		for _, tag := range f.tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		rec.Tags = tags
	}
	featured, err := parseYesNo(f.featured)
	if err != nil {
		return err
	}
	set(&rec.Featured, featured)
	read, err := parseYesNo(f.read)
	if err != nil {
		return err
	}
	set(&rec.IsRead, read)
	return nil
}
