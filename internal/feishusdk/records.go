package feishusdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkbitable "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"
	"github.com/pkg/errors"
)

// URLCell is the composite value accepted by URL typed bitable fields.
type URLCell struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// CreateRecordResult reports how the server answered a create or update
// record call.
// A non-2xx status or non-zero Code is not returned as an error; callers
// decide how to react.
type CreateRecordResult struct {
	HTTPStatus int
	Code       int
	Msg        string
	RecordID   string
	LogID      string
}

// Success reports whether the record was created.
func (r *CreateRecordResult) Success() bool {
	return r != nil && isHTTPSuccess(r.HTTPStatus) && r.Code == 0
}

// CreateRecord posts a single record. The returned error is reserved for
// transport level failures (request could not be sent or decoded).
func (c *Client) CreateRecord(ctx context.Context, ref BitableRef, token string, fields map[string]any) (*CreateRecordResult, error) {
	if c == nil {
		return nil, errors.New("feishu: client is nil")
	}
	if len(fields) == 0 {
		return nil, errors.New("feishu: no fields provided for creation")
	}
	if err := requireBitableAppTable(ref); err != nil {
		return nil, err
	}
	if err := requireToken(token); err != nil {
		return nil, err
	}
	if c.useHTTP() {
		return c.createRecordHTTP(ctx, ref, token, fields)
	}
	return c.createRecordSDK(ctx, ref, token, fields)
}

func (c *Client) createRecordHTTP(ctx context.Context, ref BitableRef, token string, fields map[string]any) (*CreateRecordResult, error) {
	payload := map[string]any{"fields": fields}
	status, raw, err := c.doJSONRequest(ctx, http.MethodPost, tablePath(ref, "records"), token, payload)
	if err != nil {
		return nil, errors.Wrap(err, "create bitable record failed")
	}

	result := &CreateRecordResult{HTTPStatus: status}
	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Record *larkbitable.AppTableRecord `json:"record"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		if !isHTTPSuccess(status) {
			result.Code = -1
			result.Msg = strings.TrimSpace(string(raw))
			return result, nil
		}
		return nil, errors.Wrap(err, "feishu: decode create response")
	}
	result.Code = resp.Code
	result.Msg = resp.Msg
	if resp.Data.Record != nil {
		result.RecordID = strings.TrimSpace(larkcore.StringValue(resp.Data.Record.RecordId))
	}
	return result, nil
}

func (c *Client) createRecordSDK(ctx context.Context, ref BitableRef, token string, fields map[string]any) (*CreateRecordResult, error) {
	if c.recordAPI == nil {
		return nil, errors.New("feishu: bitable record sdk client is nil")
	}
	record := larkbitable.NewAppTableRecordBuilder().
		Fields(fields).
		Build()

	resp, err := c.recordAPI.Create(ctx, ref.AppToken, ref.TableID, record, c.tenantRequestOptions(token)...)
	if err != nil {
		return nil, errors.Wrap(err, "feishu: create record request failed")
	}
	if resp == nil || resp.ApiResp == nil {
		return nil, errors.New("feishu: empty response when creating record")
	}
	result := &CreateRecordResult{
		HTTPStatus: resp.ApiResp.StatusCode,
		Code:       resp.Code,
		Msg:        resp.Msg,
		LogID:      resp.RequestId(),
	}
	if resp.Data != nil && resp.Data.Record != nil {
		result.RecordID = strings.TrimSpace(larkcore.StringValue(resp.Data.Record.RecordId))
	}
	return result, nil
}

// UpdateRecord overwrites the given fields of an existing record. The result
// follows the CreateRecord contract.
func (c *Client) UpdateRecord(ctx context.Context, ref BitableRef, token, recordID string, fields map[string]any) (*CreateRecordResult, error) {
	if c == nil {
		return nil, errors.New("feishu: client is nil")
	}
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return nil, errors.New("feishu: record id is empty")
	}
	if len(fields) == 0 {
		return nil, errors.New("feishu: no fields provided for update")
	}
	if err := requireBitableAppTable(ref); err != nil {
		return nil, err
	}
	if err := requireToken(token); err != nil {
		return nil, err
	}
	if c.useHTTP() {
		return c.updateRecordHTTP(ctx, ref, token, recordID, fields)
	}
	return c.updateRecordSDK(ctx, ref, token, recordID, fields)
}

func (c *Client) updateRecordHTTP(ctx context.Context, ref BitableRef, token, recordID string, fields map[string]any) (*CreateRecordResult, error) {
	payload := map[string]any{"fields": fields}
	path := tablePath(ref, "records/"+url.PathEscape(recordID))
	status, raw, err := c.doJSONRequest(ctx, http.MethodPut, path, token, payload)
	if err != nil {
		return nil, errors.Wrap(err, "update bitable record failed")
	}

	result := &CreateRecordResult{HTTPStatus: status, RecordID: recordID}
	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		if !isHTTPSuccess(status) {
			result.Code = -1
			result.Msg = strings.TrimSpace(string(raw))
			return result, nil
		}
		return nil, errors.Wrap(err, "feishu: decode update response")
	}
	result.Code = resp.Code
	result.Msg = resp.Msg
	return result, nil
}

func (c *Client) updateRecordSDK(ctx context.Context, ref BitableRef, token, recordID string, fields map[string]any) (*CreateRecordResult, error) {
	if c.recordAPI == nil {
		return nil, errors.New("feishu: bitable record sdk client is nil")
	}
	record := larkbitable.NewAppTableRecordBuilder().
		Fields(fields).
		Build()

	resp, err := c.recordAPI.Update(ctx, ref.AppToken, ref.TableID, recordID, record, c.tenantRequestOptions(token)...)
	if err != nil {
		return nil, errors.Wrap(err, "feishu: update record request failed")
	}
	if resp == nil || resp.ApiResp == nil {
		return nil, errors.New("feishu: empty response when updating record")
	}
	return &CreateRecordResult{
		HTTPStatus: resp.ApiResp.StatusCode,
		Code:       resp.Code,
		Msg:        resp.Msg,
		RecordID:   recordID,
		LogID:      resp.RequestId(),
	}, nil
}

// BitableRow wraps a raw bitable record so callers can read arbitrary columns.
type BitableRow struct {
	RecordID string
	Fields   map[string]any
}

// SearchOptions narrows a record search.
type SearchOptions struct {
	Filter     *FilterInfo
	FieldNames []string
	PageSize   int
	// Limit caps the number of rows returned; zero means all pages.
	Limit int
}

// SearchRecords runs the bitable search API and collects matching rows.
func (c *Client) SearchRecords(ctx context.Context, ref BitableRef, token string, opts SearchOptions) ([]BitableRow, error) {
	if c == nil {
		return nil, errors.New("feishu: client is nil")
	}
	if err := requireBitableAppTable(ref); err != nil {
		return nil, err
	}
	if err := requireToken(token); err != nil {
		return nil, err
	}
	pageSize := clampBitablePageSize(opts.PageSize)
	if opts.Limit > 0 && opts.Limit < pageSize {
		pageSize = opts.Limit
	}

	var rows []BitableRow
	pageToken := ""
	for {
		var (
			page    []BitableRow
			hasMore bool
			next    string
			err     error
		)
		if c.useHTTP() {
			page, hasMore, next, err = c.searchRecordsHTTP(ctx, ref, token, pageSize, pageToken, opts)
		} else {
			page, hasMore, next, err = c.searchRecordsSDK(ctx, ref, token, pageSize, pageToken, opts)
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)
		if opts.Limit > 0 && len(rows) >= opts.Limit {
			return rows[:opts.Limit], nil
		}
		if !hasMore || strings.TrimSpace(next) == "" {
			return rows, nil
		}
		pageToken = next
	}
}

func (c *Client) searchRecordsHTTP(ctx context.Context, ref BitableRef, token string, pageSize int, pageToken string, opts SearchOptions) ([]BitableRow, bool, string, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}
	body := map[string]any{}
	if opts.Filter != nil {
		body["filter"] = opts.Filter
	}
	if len(opts.FieldNames) > 0 {
		body["field_names"] = opts.FieldNames
	}
	status, raw, err := c.doJSONRequest(ctx, http.MethodPost, tablePath(ref, "records/search")+"?"+q.Encode(), token, body)
	if err != nil {
		return nil, false, "", errors.Wrap(err, "search bitable records failed")
	}
	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Items []struct {
				RecordID string         `json:"record_id"`
				Fields   map[string]any `json:"fields"`
			} `json:"items"`
			HasMore   bool   `json:"has_more"`
			PageToken string `json:"page_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		if !isHTTPSuccess(status) {
			return nil, false, "", &APIError{Action: "search records", HTTPStatus: status, Code: -1, Msg: strings.TrimSpace(string(raw))}
		}
		return nil, false, "", errors.Wrap(err, "feishu: decode search response")
	}
	if !isHTTPSuccess(status) || resp.Code != 0 {
		return nil, false, "", &APIError{Action: "search records", HTTPStatus: status, Code: resp.Code, Msg: resp.Msg}
	}
	rows := make([]BitableRow, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		rows = append(rows, BitableRow{RecordID: strings.TrimSpace(item.RecordID), Fields: item.Fields})
	}
	return rows, resp.Data.HasMore, strings.TrimSpace(resp.Data.PageToken), nil
}

func (c *Client) searchRecordsSDK(ctx context.Context, ref BitableRef, token string, pageSize int, pageToken string, opts SearchOptions) ([]BitableRow, bool, string, error) {
	if c.recordAPI == nil {
		return nil, false, "", errors.New("feishu: bitable record sdk client is nil")
	}
	body := &larkbitable.SearchAppTableRecordReqBody{}
	if opts.Filter != nil {
		body.Filter = CloneFilter(opts.Filter)
	}
	if len(opts.FieldNames) > 0 {
		body.FieldNames = append([]string(nil), opts.FieldNames...)
	}
	resp, err := c.recordAPI.Search(ctx, ref.AppToken, ref.TableID, pageSize, pageToken, body, c.tenantRequestOptions(token)...)
	if err != nil {
		return nil, false, "", errors.Wrap(err, "feishu: search records request failed")
	}
	if resp == nil || resp.ApiResp == nil {
		return nil, false, "", errors.New("feishu: empty response when searching records")
	}
	if !isHTTPSuccess(resp.ApiResp.StatusCode) || !resp.Success() {
		return nil, false, "", sdkAPIError("search records", resp.ApiResp, resp.Code, resp.Msg, resp.RequestId())
	}
	if resp.Data == nil {
		return nil, false, "", nil
	}
	rows := make([]BitableRow, 0, len(resp.Data.Items))
	for _, rec := range resp.Data.Items {
		if rec == nil {
			continue
		}
		rows = append(rows, BitableRow{
			RecordID: strings.TrimSpace(larkcore.StringValue(rec.RecordId)),
			Fields:   rec.Fields,
		})
	}
	return rows, larkcore.BoolValue(resp.Data.HasMore), strings.TrimSpace(larkcore.StringValue(resp.Data.PageToken)), nil
}
