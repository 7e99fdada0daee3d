package feishusdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/httprunner/ScysCollector/internal/env"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkauth "github.com/larksuite/oapi-sdk-go/v3/service/auth/v3"
	larkbitable "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"
	larkwiki "github.com/larksuite/oapi-sdk-go/v3/service/wiki/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL     = "https://open.feishu.cn"
	defaultHTTPTimeout = 60 * time.Second

	defaultTransport = "sdk"

	tenantTokenPath = "/open-apis/auth/v3/tenant_access_token/internal"
)

type tenantTokenAPI interface {
	Internal(ctx context.Context, appID, appSecret string) (*larkauth.InternalTenantAccessTokenResp, error)
}

type larkTenantTokenService interface {
	Internal(ctx context.Context, req *larkauth.InternalTenantAccessTokenReq, options ...larkcore.RequestOptionFunc) (*larkauth.InternalTenantAccessTokenResp, error)
}

type sdkTenantTokenAPI struct {
	svc larkTenantTokenService
}

func (a sdkTenantTokenAPI) Internal(ctx context.Context, appID, appSecret string) (*larkauth.InternalTenantAccessTokenResp, error) {
	body := larkauth.NewInternalTenantAccessTokenReqBodyBuilder().
		AppId(appID).
		AppSecret(appSecret).
		Build()
	req := larkauth.NewInternalTenantAccessTokenReqBuilder().
		Body(body).
		Build()
	return a.svc.Internal(ctx, req)
}

type bitableFieldAPI interface {
	List(ctx context.Context, appToken, tableID string, pageSize int, pageToken string, options ...larkcore.RequestOptionFunc) (*larkbitable.ListAppTableFieldResp, error)
}

type larkAppTableFieldService interface {
	List(ctx context.Context, req *larkbitable.ListAppTableFieldReq, options ...larkcore.RequestOptionFunc) (*larkbitable.ListAppTableFieldResp, error)
}

type sdkBitableFieldAPI struct {
	svc larkAppTableFieldService
}

func (a sdkBitableFieldAPI) List(ctx context.Context, appToken, tableID string, pageSize int, pageToken string, options ...larkcore.RequestOptionFunc) (*larkbitable.ListAppTableFieldResp, error) {
	builder := larkbitable.NewListAppTableFieldReqBuilder().
		AppToken(appToken).
		TableId(tableID).
		PageSize(pageSize)
	if strings.TrimSpace(pageToken) != "" {
		builder.PageToken(strings.TrimSpace(pageToken))
	}
	return a.svc.List(ctx, builder.Build(), options...)
}

type bitableRecordAPI interface {
	Create(ctx context.Context, appToken, tableID string, record *larkbitable.AppTableRecord, options ...larkcore.RequestOptionFunc) (*larkbitable.CreateAppTableRecordResp, error)
	Update(ctx context.Context, appToken, tableID, recordID string, record *larkbitable.AppTableRecord, options ...larkcore.RequestOptionFunc) (*larkbitable.UpdateAppTableRecordResp, error)
	Search(ctx context.Context, appToken, tableID string, pageSize int, pageToken string, body *larkbitable.SearchAppTableRecordReqBody, options ...larkcore.RequestOptionFunc) (*larkbitable.SearchAppTableRecordResp, error)
}

type larkAppTableRecordService interface {
	Create(ctx context.Context, req *larkbitable.CreateAppTableRecordReq, options ...larkcore.RequestOptionFunc) (*larkbitable.CreateAppTableRecordResp, error)
	Update(ctx context.Context, req *larkbitable.UpdateAppTableRecordReq, options ...larkcore.RequestOptionFunc) (*larkbitable.UpdateAppTableRecordResp, error)
	Search(ctx context.Context, req *larkbitable.SearchAppTableRecordReq, options ...larkcore.RequestOptionFunc) (*larkbitable.SearchAppTableRecordResp, error)
}

type sdkBitableRecordAPI struct {
	svc larkAppTableRecordService
}

func (a sdkBitableRecordAPI) Create(ctx context.Context, appToken, tableID string, record *larkbitable.AppTableRecord, options ...larkcore.RequestOptionFunc) (*larkbitable.CreateAppTableRecordResp, error) {
	req := larkbitable.NewCreateAppTableRecordReqBuilder().
		AppToken(appToken).
		TableId(tableID).
		AppTableRecord(record).
		Build()
	return a.svc.Create(ctx, req, options...)
}

func (a sdkBitableRecordAPI) Update(ctx context.Context, appToken, tableID, recordID string, record *larkbitable.AppTableRecord, options ...larkcore.RequestOptionFunc) (*larkbitable.UpdateAppTableRecordResp, error) {
	req := larkbitable.NewUpdateAppTableRecordReqBuilder().
		AppToken(appToken).
		TableId(tableID).
		RecordId(recordID).
		AppTableRecord(record).
		Build()
	return a.svc.Update(ctx, req, options...)
}

func (a sdkBitableRecordAPI) Search(ctx context.Context, appToken, tableID string, pageSize int, pageToken string, body *larkbitable.SearchAppTableRecordReqBody, options ...larkcore.RequestOptionFunc) (*larkbitable.SearchAppTableRecordResp, error) {
	builder := larkbitable.NewSearchAppTableRecordReqBuilder().
		AppToken(appToken).
		TableId(tableID).
		PageSize(pageSize)
	if strings.TrimSpace(pageToken) != "" {
		builder.PageToken(strings.TrimSpace(pageToken))
	}
	if body != nil {
		builder.Body(body)
	}
	return a.svc.Search(ctx, builder.Build(), options...)
}

type wikiSpaceAPI interface {
	GetNode(ctx context.Context, token string, options ...larkcore.RequestOptionFunc) (*larkwiki.GetNodeSpaceResp, error)
}

type larkWikiSpaceService interface {
	GetNode(ctx context.Context, req *larkwiki.GetNodeSpaceReq, options ...larkcore.RequestOptionFunc) (*larkwiki.GetNodeSpaceResp, error)
}

type sdkWikiSpaceAPI struct {
	svc larkWikiSpaceService
}

func (w sdkWikiSpaceAPI) GetNode(ctx context.Context, token string, options ...larkcore.RequestOptionFunc) (*larkwiki.GetNodeSpaceResp, error) {
	req := larkwiki.NewGetNodeSpaceReqBuilder().
		Token(token).
		Build()
	return w.svc.GetNode(ctx, req, options...)
}

// Options tunes how a Client talks to Feishu. Zero values fall back to the
// FEISHU_* environment variables and then to built-in defaults.
type Options struct {
	BaseURL    string
	Transport  string
	TenantKey  string
	HTTPClient *http.Client
}

// Client wraps the Feishu open APIs used by the collector: tenant token
// exchange, bitable field listing, record creation and search.
//
// The client never caches tenant tokens; callers request one per submission
// and pass it to every call.
type Client struct {
	appID     string
	appSecret string
	tenantKey string

	baseURL    string
	httpClient *http.Client
	transport  string

	tokenAPI  tenantTokenAPI
	fieldAPI  bitableFieldAPI
	recordAPI bitableRecordAPI
	wikiAPI   wikiSpaceAPI

	// used for mock test
	doJSONRequestFunc func(ctx context.Context, method, path, token string, payload any) (int, []byte, error)

	appTokenMu    sync.RWMutex
	appTokenCache map[string]string
	appTokenGroup singleflight.Group
}

// NewClient constructs a Client for the given app credentials.
func NewClient(appID, appSecret string, opts Options) (*Client, error) {
	appID = strings.TrimSpace(appID)
	appSecret = strings.TrimSpace(appSecret)
	if appID == "" || appSecret == "" {
		return nil, errors.New("feishu: app id and app secret are required")
	}

	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = env.String("FEISHU_BASE_URL", defaultBaseURL)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	transport := opts.Transport
	if strings.TrimSpace(transport) == "" {
		transport = env.String("FEISHU_TRANSPORT", "")
	}
	tenantKey := strings.TrimSpace(opts.TenantKey)
	if tenantKey == "" {
		tenantKey = env.String("FEISHU_TENANT_KEY", "")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	larkOpts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelError),
		lark.WithEnableTokenCache(false),
		lark.WithHttpClient(httpClient),
	}
	if baseURL != lark.FeishuBaseUrl {
		larkOpts = append(larkOpts, lark.WithOpenBaseUrl(baseURL))
	}
	larkClient := lark.NewClient(appID, appSecret, larkOpts...)

	return &Client{
		appID:      appID,
		appSecret:  appSecret,
		tenantKey:  tenantKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		transport:  normalizeTransport(transport),
		tokenAPI:   sdkTenantTokenAPI{svc: larkClient.Auth.V3.TenantAccessToken},
		fieldAPI:   sdkBitableFieldAPI{svc: larkClient.Bitable.V1.AppTableField},
		recordAPI:  sdkBitableRecordAPI{svc: larkClient.Bitable.V1.AppTableRecord},
		wikiAPI:    sdkWikiSpaceAPI{svc: larkClient.Wiki.V2.Space},
	}, nil
}

func normalizeTransport(raw string) string {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "sdk", "http":
		return mode
	default:
		return defaultTransport
	}
}

// Transport reports the active transport ("sdk" or "http").
func (c *Client) Transport() string {
	if c == nil {
		return ""
	}
	return c.transport
}

func (c *Client) useHTTP() bool {
	if c == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(c.transport), "http")
}

func (c *Client) apiBase() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return defaultBaseURL
}

func (c *Client) tenantRequestOptions(token string) []larkcore.RequestOptionFunc {
	opts := []larkcore.RequestOptionFunc{larkcore.WithTenantAccessToken(token)}
	if strings.TrimSpace(c.tenantKey) != "" {
		opts = append(opts, larkcore.WithTenantKey(strings.TrimSpace(c.tenantKey)))
	}
	return opts
}

// TenantAccessToken exchanges the app credentials for a tenant_access_token.
// Each call issues exactly one request.
func (c *Client) TenantAccessToken(ctx context.Context) (string, error) {
	if c == nil {
		return "", errors.New("feishu: client is nil")
	}

	var (
		status int
		raw    []byte
	)
	if c.useHTTP() {
		payload := map[string]string{"app_id": c.appID, "app_secret": c.appSecret}
		var err error
		status, raw, err = c.doJSONRequest(ctx, http.MethodPost, tenantTokenPath, "", payload)
		if err != nil {
			return "", errors.Wrap(err, "feishu: request tenant access token failed")
		}
	} else {
		if c.tokenAPI == nil {
			return "", errors.New("feishu: auth sdk client is nil")
		}
		resp, err := c.tokenAPI.Internal(ctx, c.appID, c.appSecret)
		if err != nil {
			return "", errors.Wrap(err, "feishu: request tenant access token failed")
		}
		if resp == nil || resp.ApiResp == nil {
			return "", errors.New("feishu: empty response when fetching tenant access token")
		}
		status, raw = resp.ApiResp.StatusCode, resp.ApiResp.RawBody
	}

	var parsed struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if !isHTTPSuccess(status) {
			return "", &APIError{Action: "tenant access token", HTTPStatus: status, Code: -1, Msg: strings.TrimSpace(string(raw))}
		}
		return "", errors.Wrap(err, "feishu: decode tenant access token response")
	}
	if !isHTTPSuccess(status) || parsed.Code != 0 {
		return "", &APIError{Action: "tenant access token", HTTPStatus: status, Code: parsed.Code, Msg: parsed.Msg}
	}
	if parsed.TenantAccessToken == "" {
		return "", errors.New("feishu: tenant access token missing in response")
	}
	return parsed.TenantAccessToken, nil
}

func (c *Client) doJSONRequest(ctx context.Context, method, path, token string, payload any) (int, []byte, error) {
	if c.doJSONRequestFunc != nil {
		return c.doJSONRequestFunc(ctx, method, path, token, payload)
	}
	return c.doJSONRequestInternal(ctx, method, path, token, payload)
}

// doJSONRequestInternal returns the HTTP status and raw body. Non-2xx
// statuses are not errors here: callers inspect the embedded code too.
func (c *Client) doJSONRequestInternal(ctx context.Context, method, path, token string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, errors.Wrap(err, "feishu: marshal request payload")
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase()+path, body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "feishu: build request")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "feishu: execute request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "feishu: read response")
	}
	return resp.StatusCode, rawBody, nil
}

func isHTTPSuccess(status int) bool {
	// Test doubles may leave the status unset.
	return status == 0 || (status >= 200 && status < 300)
}

// APIError describes a failed Feishu call: either a non-2xx HTTP status or a
// non-zero code embedded in an otherwise successful response.
type APIError struct {
	Action     string
	HTTPStatus int
	Code       int
	Msg        string
	LogID      string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "feishu: %s failed", e.Action)
	if e.HTTPStatus != 0 && !isHTTPSuccess(e.HTTPStatus) {
		fmt.Fprintf(&b, " http=%d", e.HTTPStatus)
	}
	fmt.Fprintf(&b, " code=%d msg=%s", e.Code, e.Msg)
	if strings.TrimSpace(e.LogID) != "" {
		fmt.Fprintf(&b, " log_id=%s", e.LogID)
	}
	return b.String()
}

func sdkAPIError(action string, resp *larkcore.ApiResp, code int, msg, logID string) *APIError {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return &APIError{Action: action, HTTPStatus: status, Code: code, Msg: msg, LogID: logID}
}
