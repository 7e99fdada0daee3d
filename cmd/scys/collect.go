package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/httprunner/ScysCollector/pkg/collector"
	"github.com/httprunner/ScysCollector/pkg/scys"
	"github.com/httprunner/ScysCollector/pkg/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errAlreadyCollected = errors.New("page already collected, pass --force to save it again")

func newCollectCmd() *cobra.Command {
	var (
		fetch  fetchFlags
		record recordFlags
		force  bool
		update bool
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "collect <url>",
		Short: "Extract a scys.com page and save it to the Feishu table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pageURL := strings.TrimSpace(args[0])

			info, err := fetch.fetcher().Collect(ctx, pageURL)
			if err != nil {
				if errors.Is(err, scys.ErrNotScysPage) {
					return err
				}
				log.Warn().Err(err).Str("url", pageURL).Msg("extraction failed, continuing with basic info")
			}
			rec := collector.RecordFromPage(info)
			if err := record.apply(&rec); err != nil {
				return err
			}
			if err := rec.Validate(); err != nil {
				return err
			}
			if dryRun {
				return writeJSON(cmd.OutOrStdout(), rec)
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
			if update {
				return updateOrSubmit(ctx, cmd.OutOrStdout(), client, history, settings, rec)
			}
			if !force {
				if err := ensureNotCollected(ctx, collector.NewChecker(client), history, settings, rec.URL); err != nil {
					return err
				}
			}
			return submitRecord(ctx, cmd.OutOrStdout(), client, history, settings, rec)
		},
	}
	fetch.bind(cmd)
	record.bind(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "跳过重复检测")
	cmd.Flags().BoolVar(&update, "update", false, "已收藏时覆盖表格中的已有记录")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只打印将要保存的记录")
	return cmd
}

// ensureNotCollected consults the local ledger, then the remote table. A
// failed remote lookup is logged and doesn't block the save.
func ensureNotCollected(ctx context.Context, checker *collector.Checker, history *storage.HistoryStore, settings *config.Settings, pageURL string) error {
	if history != nil {
		entry, err := history.FindSuccessByURL(ctx, settings.Ref(), pageURL)
		if err != nil {
			log.Warn().Err(err).Msg("local duplicate check failed")
		} else if entry != nil {
			log.Warn().Str("record_id", entry.RecordID).Time("saved_at", entry.CreatedAt).
				Msg("page was already saved from this machine")
			return errAlreadyCollected
		}
	}
	matches, err := checker.FindByURL(ctx, settings, pageURL)
	if err != nil {
		log.Warn().Err(err).Msg("remote duplicate check failed, continuing")
		return nil
	}
	if len(matches) > 0 {
		for _, m := range matches {
			log.Warn().Str("record_id", m.RecordID).Str("title", m.Title).Msg("table already has this page")
		}
		return errAlreadyCollected
	}
	return nil
}

// updateOrSubmit overwrites the first table row holding rec.URL, or creates
// a new row when there is none.
func updateOrSubmit(ctx context.Context, w io.Writer, client *feishusdk.Client, history *storage.HistoryStore, settings *config.Settings, rec collector.Record) error {
	matches, err := collector.NewChecker(client).FindByURL(ctx, settings, rec.URL)
	if err != nil {
		return errors.Wrap(err, "look up existing record")
	}
	if len(matches) == 0 {
		log.Info().Str("url", rec.URL).Msg("no existing record, creating a new one")
		return submitRecord(ctx, w, client, history, settings, rec)
	}
	if len(matches) > 1 {
		log.Warn().Int("matches", len(matches)).Msg("table holds several rows for this page, updating the first")
	}
	result, err := collector.NewPipeline(client, pipelineOptions(history)...).
		Update(ctx, settings, matches[0].RecordID, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "更新成功：record_id=%s attempts=%d\n", result.Outcome.RecordID, result.Outcome.Attempts)
	return nil
}

func pipelineOptions(history *storage.HistoryStore) []collector.Option {
	if history == nil {
		return nil
	}
	return []collector.Option{collector.WithRecorder(history)}
}

func submitRecord(ctx context.Context, w io.Writer, client *feishusdk.Client, history *storage.HistoryStore, settings *config.Settings, rec collector.Record) error {
	result, err := collector.NewPipeline(client, pipelineOptions(history)...).Submit(ctx, settings, rec)
	if err != nil {
		return err
	}
	outcome := result.Outcome
	fmt.Fprintf(w, "保存成功：record_id=%s attempts=%d", outcome.RecordID, outcome.Attempts)
	if outcome.UsedFallback() {
		fmt.Fprint(w, "（URL 字段已按文本格式保存）")
	}
	fmt.Fprintln(w)
	return nil
}
