package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/httprunner/ScysCollector/internal/env"
	"github.com/httprunner/ScysCollector/pkg/collector"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scys",
	Short: "Collect scys.com pages into a Feishu Bitable",
	Long:  `scys CLI 将生财有术（scys.com）的帖子、文章、课程和直播页面整理成收藏记录写入飞书多维表格：自动匹配表格字段，URL 字段格式不兼容时以纯文本重试，并在本地保存提交记录。`,

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setLogLevel(rootLogLevel); err != nil {
			return err
		}
		if path := env.LoadedPath(); path != "" {
			log.Debug().Str("path", path).Msg("loaded .env")
		}
		return nil
	},
}

var (
	rootConfigPath string
	rootLogLevel   string
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "配置文件路径，覆盖 $SCYS_CONFIG（默认 ~/.scys/config.yaml）")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "日志级别：debug/info/warn/error")
	rootCmd.AddCommand(
		newExtractCmd(),
		newCollectCmd(),
		newSubmitCmd(),
		newFieldsCmd(),
		newTagsCmd(),
		newCheckCmd(),
		newProbeCmd(),
		newHistoryCmd(),
		newConfigCmd(),
	)
	_ = env.Ensure()
}

func setLogLevel(raw string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", raw, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if hint := collector.Guidance(err); hint != "" {
			log.Error().Msg(hint)
		}
		log.Fatal().Err(err).Msg("scys command failed")
	}
}
