package main

import (
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/httprunner/ScysCollector/internal/env"
	"github.com/httprunner/ScysCollector/pkg/scys"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	envScysCookie   = "SCYS_COOKIE"
	envFetchTimeout = "SCYS_FETCH_TIMEOUT"
)

type fetchFlags struct {
	cookie  string
	timeout time.Duration
}

func (f *fetchFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cookie, "cookie", "", "scys.com 登录 Cookie，覆盖 $SCYS_COOKIE")
	cmd.Flags().DurationVar(&f.timeout, "timeout", env.Duration(envFetchTimeout, 10*time.Second), "页面请求超时，默认取 $SCYS_FETCH_TIMEOUT")
}

func (f *fetchFlags) fetcher() *scys.Fetcher {
	fetcher := scys.NewFetcher(f.timeout)
	fetcher.Cookie = firstNonEmpty(f.cookie, env.String(envScysCookie, ""))
	return fetcher
}

func newExtractCmd() *cobra.Command {
	var (
		fetch    fetchFlags
		htmlFile string
	)
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract page info from a scys.com page",
		Long:  "Fetches the page (or parses --html) and prints title, author, content type, featured badge, Feishu link and suggested tags as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageURL := strings.TrimSpace(args[0])
			var info scys.PageInfo
			if htmlFile != "" {
				doc, err := readHTMLFile(htmlFile)
				if err != nil {
					return err
				}
				info = scys.Extract(doc, pageURL)
			} else {
				var err error
				info, err = fetch.fetcher().Collect(cmd.Context(), pageURL)
				if err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				scys.PageInfo
				SuggestedTags []string `json:"suggestedTags"`
			}{info, scys.SuggestTags(info)})
		},
	}
	fetch.bind(cmd)
	cmd.Flags().StringVar(&htmlFile, "html", "", "解析本地保存的 HTML 文件而不请求页面")
	return cmd
}

func readHTMLFile(path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open html file")
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "parse html file")
	}
	return doc, nil
}
