package collector

import (
	"net/http"
	"strings"

	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/pkg/errors"
)

const (
	guidanceConfig     = "请先运行 scys config set 完成飞书配置"
	guidanceAuth       = "请检查 App ID 与 App Secret 是否正确，以及应用是否已发布"
	guidanceURLField   = "URL字段格式不正确：请检查飞书表格中的URL字段设置，确保字段类型为\"URL\"类型"
	guidancePermission = "权限不足：请检查应用权限和表格访问权限（需将应用添加为多维表格协作者）"
	guidanceFieldName  = "字段不匹配：请检查表格字段名称是否与收藏字段对应"
	guidanceTableURL   = "请确认表格链接格式为 https://xxx.feishu.cn/base/{appToken}?table={tableId}"
	guidanceInProgress = "上一次保存尚未完成，请稍后重试"
)

// Guidance returns a user-facing hint for err, or "" when there is none.
func Guidance(err error) string {
	if err == nil {
		return ""
	}
	var (
		cfgErr    *ConfigIncompleteError
		authErr   *AuthError
		schemaErr *SchemaFetchError
		subErr    *SubmissionError
		apiErr    *feishusdk.APIError
	)
	switch {
	case errors.Is(err, ErrSubmissionInProgress):
		return guidanceInProgress
	case errors.As(err, &cfgErr):
		return guidanceConfig
	case errors.As(err, &authErr):
		return guidanceAuth
	case errors.As(err, &subErr) && subErr.Err == nil:
		return guidanceForResponse(subErr.HTTPStatus, subErr.Msg)
	case errors.As(err, &schemaErr):
		if errors.As(err, &apiErr) {
			if hint := guidanceForResponse(apiErr.HTTPStatus, apiErr.Msg); hint != "" {
				return hint
			}
		}
		return guidanceTableURL
	}
	return ""
}

func guidanceForResponse(status int, msg string) string {
	switch {
	case msg == urlFieldConvFailMsg:
		return guidanceURLField
	case status == http.StatusUnauthorized || status == http.StatusForbidden,
		strings.Contains(strings.ToLower(msg), "permission"):
		return guidancePermission
	case strings.Contains(strings.ToLower(msg), "field"):
		return guidanceFieldName
	}
	return ""
}
