package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/httprunner/ScysCollector/pkg/collector"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	var (
		file   string
		record recordFlags
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Save a record given as JSON or flags",
		Long:  "Reads a record ({title,type,author,featured,isRead,url,feishuLink,inspiration,tags}) from --file (\"-\" for stdin), applies flag overrides and saves it without fetching any page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec collector.Record
			if file != "" {
				loaded, err := readRecordFile(file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				rec = loaded
			}
			if err := record.apply(&rec); err != nil {
				return err
			}
			if rec.Timestamp == 0 {
				rec.Timestamp = time.Now().UnixMilli()
			}
			if err := rec.Validate(); err != nil {
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
			history := openHistory()
			if history != nil {
				defer history.Close()
			}
			return submitRecord(cmd.Context(), cmd.OutOrStdout(), client, history, settings, rec)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "记录 JSON 文件，- 表示标准输入")
	record.bind(cmd)
	return cmd
}

func readRecordFile(path string, stdin io.Reader) (collector.Record, error) {
	var (
		rec  collector.Record
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return rec, errors.Wrap(err, "read record file")
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, errors.Wrap(err, "decode record json")
	}
	return rec, nil
}
