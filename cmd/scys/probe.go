package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/httprunner/ScysCollector/pkg/collector"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	var (
		record recordFlags
		yes    bool
		delay  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Find out which value format every table field accepts",
		Long:  "Creates one single-field record per field and format until the server accepts one. Every accepted format leaves a row in the table, so --yes is required.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("probe writes test records into the table, pass --yes to continue")
			}
			rec := collector.Record{
				Title:     "字段格式测试",
				Type:      "文章",
				Featured:  collector.No,
				IsRead:    collector.No,
				URL:       "https://scys.com/",
				Timestamp: time.Now().UnixMilli(),
			}
			if err := record.apply(&rec); err != nil {
				return err
			}
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			client, err := newFeishuClient(settings)
			if err != nil {
				return err
			}
			prober := collector.NewProber(client)
			prober.Delay = delay
			results, err := prober.Probe(cmd.Context(), settings, rec)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tREMOTE\tTYPE\tACCEPTED\tTRIED\tLAST CODE\tLAST MSG")
			for _, r := range results {
				accepted := "-"
				if r.Accepted != nil {
					accepted = r.Accepted.Name
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%s\n",
					r.Field, r.Remote.Name, r.Remote.Type, accepted, r.Tried, r.Code, r.Msg)
			}
			return tw.Flush()
		},
	}
	record.bind(cmd)
	cmd.Flags().BoolVar(&yes, "yes", false, "确认写入测试记录")
	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "两个字段之间的间隔")
	return cmd
}
