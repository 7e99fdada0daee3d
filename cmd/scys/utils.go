package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/env"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/httprunner/ScysCollector/pkg/collector"
	"github.com/httprunner/ScysCollector/pkg/storage"
	"github.com/rs/zerolog/log"
)

const envDisableHistory = "SCYS_DISABLE_HISTORY"

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func settingsPath() (string, error) {
	if p := strings.TrimSpace(rootConfigPath); p != "" {
		return p, nil
	}
	return config.DefaultPath()
}

func loadSettings() (*config.Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// newFeishuClient refuses incomplete settings before any client is built.
func newFeishuClient(settings *config.Settings) (*feishusdk.Client, error) {
	if missing := settings.Missing(); len(missing) > 0 {
		return nil, &collector.ConfigIncompleteError{Missing: missing}
	}
	client, err := feishusdk.NewClient(settings.AppID, settings.AppSecret, feishusdk.Options{})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("app_id", settings.AppID).Str("transport", client.Transport()).Msg("feishu client ready")
	return client, nil
}

// openHistory returns nil when the ledger is disabled or can't be opened;
// history is best-effort for every command but `history`.
func openHistory() *storage.HistoryStore {
	if env.Bool(envDisableHistory, false) {
		return nil
	}
	store, err := storage.OpenHistory("")
	if err != nil {
		log.Warn().Err(err).Msg("history ledger unavailable")
		return nil
	}
	return store
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseYesNo(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case collector.Yes, "true", "yes", "y", "1":
		return collector.Yes, nil
	case collector.No, "false", "no", "n", "0":
		return collector.No, nil
	}
	return "", fmt.Errorf("invalid yes/no value %q", raw)
}
