package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/httprunner/ScysCollector/pkg/collector"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage Feishu credentials and the target table",
	}
	cmd.AddCommand(newConfigSetCmd(), newConfigShowCmd(), newConfigTestCmd())
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	var (
		appID         string
		appSecret     string
		tableURL      string
		urlFieldTypes []int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the settings file",
		Long:  "Updates the given settings and derives app token and table id from the table URL. Wiki-hosted bases are resolved through the wiki API, which needs valid credentials.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := settingsPath()
			if err != nil {
				return err
			}
			// Env overrides are not persisted.
			settings, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			settings.AppID = firstNonEmpty(appID, settings.AppID)
			settings.AppSecret = firstNonEmpty(appSecret, settings.AppSecret)
			if cmd.Flags().Changed("url-field-types") {
				settings.URLFieldTypes = urlFieldTypes
			}
			if raw := strings.TrimSpace(tableURL); raw != "" {
				settings.TableURL = raw
				if err := deriveTableRef(cmd.Context(), settings); err != nil {
					return err
				}
			}
			if err := config.Save(path, settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "配置已保存：%s\n", path)
			if missing := settings.Missing(); len(missing) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "仍缺少：%s\n", strings.Join(missing, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&appID, "app-id", "", "飞书应用 App ID")
	cmd.Flags().StringVar(&appSecret, "app-secret", "", "飞书应用 App Secret")
	cmd.Flags().StringVar(&tableURL, "table-url", "", "多维表格链接 https://xxx.feishu.cn/base/{appToken}?table={tableId}")
	cmd.Flags().IntSliceVar(&urlFieldTypes, "url-field-types", nil, "按 URL 格式写入的额外字段类型代码，如 11")
	return cmd
}

// deriveTableRef parses settings.TableURL and resolves the app token of wiki
// links.
func deriveTableRef(ctx context.Context, settings *config.Settings) error {
	ref, err := settings.ParseTableURL()
	if err != nil {
		return err
	}
	if ref.AppToken != "" {
		return nil
	}
	client, err := feishusdk.NewClient(settings.AppID, settings.AppSecret, feishusdk.Options{})
	if err != nil {
		return err
	}
	token, err := client.TenantAccessToken(ctx)
	if err != nil {
		return &collector.AuthError{Err: err}
	}
	if err := client.ResolveAppToken(ctx, &ref, token); err != nil {
		return err
	}
	log.Info().Str("wiki_token", ref.WikiToken).Str("app_token", ref.AppToken).Msg("resolved wiki-hosted bitable")
	settings.AppToken = ref.AppToken
	return nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings with the secret masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), settings)
		},
	}
}

func printSettings(w io.Writer, settings *config.Settings) error {
	data, err := yaml.Marshal(settings.Redacted())
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if missing := settings.Missing(); len(missing) > 0 {
		fmt.Fprintf(w, "# 缺少：%s\n", strings.Join(missing, ", "))
	}
	return nil
}

func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check credentials and table access",
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
			fmt.Fprintf(cmd.OutOrStdout(), "连接成功！表格共有 %d 个字段，已匹配 %d 个收藏字段\n",
				len(report.Fields), len(report.Resolved))
			for _, logical := range collector.LogicalFields {
				if remote, ok := report.Resolved[logical]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s\n", logical, remote)
				}
			}
			return nil
		},
	}
}
