package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/httprunner/ScysCollector/internal/env"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath overrides the settings file location.
	EnvConfigPath = "SCYS_CONFIG"
	// EnvURLFieldTypes lists extra field type codes encoded as URL cells.
	EnvURLFieldTypes = "SCYS_URL_FIELD_TYPES"

	defaultDirName  = ".scys"
	defaultFileName = "config.yaml"
)

// Settings holds the Feishu credentials and target table used by every
// submission. The pipeline only ever reads it.
type Settings struct {
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
	TableURL  string `yaml:"table_url"`
	AppToken  string `yaml:"app_token"`
	TableID   string `yaml:"table_id"`
	// URLFieldTypes adds type codes, on top of 15, whose fields receive
	// {text, link} cells.
	URLFieldTypes []int `yaml:"url_field_types,omitempty"`
}

// Missing lists the names of required settings that are empty, in a stable
// order. An empty result means the settings are complete. A wiki table URL
// stands in for the app token, which is then looked up per session.
func (s *Settings) Missing() []string {
	if s == nil {
		return []string{"appId", "appSecret", "tableUrl", "appToken", "tableId"}
	}
	var missing []string
	for _, item := range []struct {
		name  string
		value string
	}{
		{"appId", s.AppID},
		{"appSecret", s.AppSecret},
		{"tableUrl", s.TableURL},
		{"appToken", s.AppToken},
		{"tableId", s.TableID},
	} {
		if item.name == "appToken" && s.wikiToken() != "" {
			continue
		}
		if strings.TrimSpace(item.value) == "" {
			missing = append(missing, item.name)
		}
	}
	return missing
}

func (s *Settings) wikiToken() string {
	ref, err := feishusdk.ParseBitableURL(s.TableURL)
	if err != nil {
		return ""
	}
	return ref.WikiToken
}

// Ref returns the bitable reference described by the settings.
func (s *Settings) Ref() feishusdk.BitableRef {
	ref := feishusdk.BitableRef{
		RawURL:   strings.TrimSpace(s.TableURL),
		AppToken: strings.TrimSpace(s.AppToken),
		TableID:  strings.TrimSpace(s.TableID),
	}
	if parsed, err := feishusdk.ParseBitableURL(s.TableURL); err == nil {
		ref.ViewID = parsed.ViewID
		ref.WikiToken = parsed.WikiToken
	}
	return ref
}

// ParseTableURL fills AppToken and TableID from TableURL. Wiki links only
// yield the table id; the caller resolves the app token through the wiki API
// and the returned ref carries the wiki token for it.
func (s *Settings) ParseTableURL() (feishusdk.BitableRef, error) {
	ref, err := feishusdk.ParseBitableURL(s.TableURL)
	if err != nil {
		return ref, err
	}
	s.TableURL = ref.RawURL
	s.TableID = ref.TableID
	s.AppToken = ref.AppToken
	return ref, nil
}

// Redacted returns a copy safe for printing.
func (s Settings) Redacted() Settings {
	out := s
	out.AppSecret = maskSecret(s.AppSecret)
	return out
}

func maskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return ""
	case len(secret) <= 4:
		return "****"
	default:
		return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
	}
}

// DefaultPath returns $SCYS_CONFIG or ~/.scys/config.yaml.
func DefaultPath() (string, error) {
	if p := env.String(EnvConfigPath, ""); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get user home directory failed")
	}
	return filepath.Join(home, defaultDirName, defaultFileName), nil
}

// Load reads the settings file at path and applies environment overrides.
// A missing file is not an error: the result then only carries env values.
func Load(path string) (*Settings, error) {
	s, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(s)
	return s, nil
}

// LoadFile reads the settings file without environment overrides.
func LoadFile(path string) (*Settings, error) {
	s := &Settings{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, "read settings file failed")
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv overrides settings with FEISHU_APP_ID, FEISHU_APP_SECRET,
// SCYS_TABLE_URL and SCYS_URL_FIELD_TYPES when they are set. A table URL from
// the environment also replaces the derived table id. Its app token replaces
// the stored one too, except for a wiki link to the node the stored token was
// resolved from; any other wiki link leaves the token to the session lookup.
func ApplyEnv(s *Settings) {
	s.AppID = env.String("FEISHU_APP_ID", s.AppID)
	s.AppSecret = env.String("FEISHU_APP_SECRET", s.AppSecret)
	if raw := env.String("SCYS_TABLE_URL", ""); raw != "" && raw != s.TableURL {
		if ref, err := feishusdk.ParseBitableURL(raw); err == nil {
			sameNode := ref.WikiToken != "" && ref.WikiToken == s.wikiToken()
			s.TableID = ref.TableID
			if !sameNode {
				s.AppToken = ref.AppToken
			}
		}
		s.TableURL = raw
	}
	s.URLFieldTypes = env.Ints(EnvURLFieldTypes, s.URLFieldTypes)
}

// Save writes the settings file with owner-only permissions, creating the
// parent directory when needed.
func Save(path string, s *Settings) error {
	if s == nil {
		return errors.New("settings is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create settings directory failed")
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal settings failed")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "write settings file failed")
	}
	return nil
}
