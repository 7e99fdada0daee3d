package feishusdk

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const (
	defaultBitablePageSize = 100
	maxBitablePageSize     = 500
)

var hostAllowList = []string{"feishu.cn", "feishuapp.com", "larksuite.com", "larkoffice.com"}

// BitableRef captures identifiers parsed from a Feishu Bitable link.
type BitableRef struct {
	RawURL    string
	AppToken  string
	TableID   string
	ViewID    string
	WikiToken string
}

func isAllowedFeishuHost(host string) bool {
	if host == "" {
		return false
	}
	lower := strings.ToLower(host)
	for _, allowed := range hostAllowList {
		if lower == allowed || strings.HasSuffix(lower, "."+allowed) {
			return true
		}
	}
	return false
}

// ParseBitableURL extracts app token, table id and view id from Feishu Bitable
// links of the form https://xxx.feishu.cn/base/{appToken}?table={tableId}&view={viewId}.
// Wiki-hosted bases (/wiki/{token}) yield a WikiToken instead of an AppToken.
func ParseBitableURL(raw string) (ref BitableRef, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "parse bitable url failed")
		}
	}()

	ref = BitableRef{RawURL: strings.TrimSpace(raw)}
	if ref.RawURL == "" {
		return ref, errors.New("empty url")
	}

	u, err := url.Parse(ref.RawURL)
	if err != nil {
		return ref, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return ref, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if !isAllowedFeishuHost(u.Host) {
		return ref, fmt.Errorf("host %q is not recognized as Feishu", u.Host)
	}

	segments := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
	if len(segments) < 2 {
		return ref, errors.New("missing app token or wiki token in url")
	}
	for i := 0; i < len(segments)-1 && ref.AppToken == "" && ref.WikiToken == ""; i++ {
		switch segments[i] {
		case "base":
			ref.AppToken = segments[i+1]
		case "wiki":
			ref.WikiToken = segments[i+1]
		}
	}
	if ref.AppToken == "" && ref.WikiToken == "" {
		return ref, errors.New("missing app token or wiki token in url")
	}

	q := u.Query()
	for _, key := range []string{"table", "tableId", "table_id"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			ref.TableID = v
			break
		}
	}
	if ref.TableID == "" {
		return ref, errors.New("missing table id in url query")
	}

	for _, key := range []string{"view", "viewId", "view_id"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			ref.ViewID = v
			break
		}
	}

	return ref, nil
}

func clampBitablePageSize(pageSize int) int {
	if pageSize <= 0 {
		return defaultBitablePageSize
	}
	if pageSize > maxBitablePageSize {
		return maxBitablePageSize
	}
	return pageSize
}

func requireBitableAppTable(ref BitableRef) error {
	if strings.TrimSpace(ref.AppToken) == "" {
		return errors.New("feishu: bitable app token is empty")
	}
	if strings.TrimSpace(ref.TableID) == "" {
		return errors.New("feishu: bitable table id is empty")
	}
	return nil
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("feishu: tenant access token is empty")
	}
	return nil
}

func tablePath(ref BitableRef, suffix string) string {
	return fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s/%s",
		url.PathEscape(ref.AppToken), url.PathEscape(ref.TableID), suffix)
}
