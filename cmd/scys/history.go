package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/httprunner/ScysCollector/pkg/storage"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent submissions from the local ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.OpenHistory(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSTATE\tATTEMPTS\tRECORD\tTITLE\tURL")
			for _, e := range entries {
				state := e.State
				if e.Fallback {
					state += " (text)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), state, e.Attempts, e.RecordID, e.Title, e.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "最多显示的记录数")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	cmd.Flags().StringVar(&dbPath, "db", "", "历史数据库路径，覆盖 $SCYS_HISTORY_DB_PATH")
	return cmd
}
