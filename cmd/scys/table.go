package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/httprunner/ScysCollector/pkg/collector"
	"github.com/spf13/cobra"
)

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the table fields and how record fields map onto them",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			client, err := newFeishuClient(settings)
			if err != nil {
				return err
			}
			report, err := collector.TestConnection(cmd.Context(), client, settings)
			if err != nil {
				return err
			}
			mapped := make(map[string][]string, len(report.Resolved))
			for logical, remote := range report.Resolved {
				mapped[remote] = append(mapped[remote], logical)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tTYPE\tID\tMAPPED FROM")
			for _, f := range report.Fields {
				logical := mapped[f.Name]
				sort.Strings(logical)
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", f.Name, f.Type, f.ID, strings.Join(logical, ","))
			}
			return tw.Flush()
		},
	}
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the options of the table's tags field",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			client, err := newFeishuClient(settings)
			if err != nil {
				return err
			}
			tags, err := collector.ListTagOptions(cmd.Context(), client, settings)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "标签字段没有可选项（非多选字段）")
				return nil
			}
			for _, tag := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Look up table records that already hold a page URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			client, err := newFeishuClient(settings)
			if err != nil {
				return err
			}
			matches, err := collector.NewChecker(client).FindByURL(cmd.Context(), settings, args[0])
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "未找到已收藏的记录")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RECORD\tTITLE\tURL")
			for _, m := range matches {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.RecordID, m.Title, m.URL)
			}
			return tw.Flush()
		},
	}
}
