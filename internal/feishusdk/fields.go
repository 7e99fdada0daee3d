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
	"github.com/rs/zerolog/log"
)

// Bitable field type codes as reported by the field listing API.
const (
	FieldTypeText         = 1
	FieldTypeNumber       = 2
	FieldTypeSingleSelect = 3
	FieldTypeMultiSelect  = 4
	FieldTypeDateTime     = 5
	FieldTypeCheckbox     = 7
	FieldTypeUser         = 11
	FieldTypePhone        = 13
	FieldTypeURL          = 15
	FieldTypeAttachment   = 17
)

// Field describes one column of a bitable table.
type Field struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	ID   string `json:"id"`
	// Options lists the option labels of select fields.
	Options []string `json:"options,omitempty"`
}

type httpField struct {
	FieldName string `json:"field_name"`
	Type      int    `json:"type"`
	FieldID   string `json:"field_id"`
	Property  *struct {
		Options []struct {
			Name string `json:"name"`
		} `json:"options"`
	} `json:"property"`
}

// ListFields returns the field definitions of a table in server order,
// following pagination until the listing is exhausted.
func (c *Client) ListFields(ctx context.Context, ref BitableRef, token string) ([]Field, error) {
	if c == nil {
		return nil, errors.New("feishu: client is nil")
	}
	if err := requireBitableAppTable(ref); err != nil {
		return nil, err
	}
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var (
		fields []Field
		err    error
	)
	if c.useHTTP() {
		fields, err = c.listFieldsHTTP(ctx, ref, token)
	} else {
		fields, err = c.listFieldsSDK(ctx, ref, token)
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Str("table_id", ref.TableID).Int("fields", len(fields)).Msg("feishu: listed bitable fields")
	return fields, nil
}

func (c *Client) listFieldsHTTP(ctx context.Context, ref BitableRef, token string) ([]Field, error) {
	out := make([]Field, 0, 16)
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("page_size", strconv.Itoa(defaultBitablePageSize))
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}
		status, raw, err := c.doJSONRequest(ctx, http.MethodGet, tablePath(ref, "fields")+"?"+q.Encode(), token, nil)
		if err != nil {
			return nil, err
		}
		var resp struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
			Data struct {
				Items     []httpField `json:"items"`
				HasMore   bool        `json:"has_more"`
				PageToken string      `json:"page_token"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			if !isHTTPSuccess(status) {
				return nil, &APIError{Action: "list fields", HTTPStatus: status, Code: -1, Msg: strings.TrimSpace(string(raw))}
			}
			return nil, errors.Wrap(err, "feishu: decode list fields response")
		}
		if !isHTTPSuccess(status) || resp.Code != 0 {
			return nil, &APIError{Action: "list fields", HTTPStatus: status, Code: resp.Code, Msg: resp.Msg}
		}
		for _, item := range resp.Data.Items {
			field := Field{Name: item.FieldName, Type: item.Type, ID: item.FieldID}
			if item.Property != nil {
				for _, opt := range item.Property.Options {
					if name := strings.TrimSpace(opt.Name); name != "" {
						field.Options = append(field.Options, name)
					}
				}
			}
			out = append(out, field)
		}
		pageToken = strings.TrimSpace(resp.Data.PageToken)
		if !resp.Data.HasMore || pageToken == "" {
			return out, nil
		}
	}
}

func (c *Client) listFieldsSDK(ctx context.Context, ref BitableRef, token string) ([]Field, error) {
	if c.fieldAPI == nil {
		return nil, errors.New("feishu: bitable field sdk client is nil")
	}
	out := make([]Field, 0, 16)
	pageToken := ""
	for {
		resp, err := c.fieldAPI.List(ctx, ref.AppToken, ref.TableID, defaultBitablePageSize, pageToken, c.tenantRequestOptions(token)...)
		if err != nil {
			return nil, errors.Wrap(err, "feishu: list fields request failed")
		}
		if resp == nil || resp.ApiResp == nil {
			return nil, errors.New("feishu: empty response when listing fields")
		}
		if !isHTTPSuccess(resp.ApiResp.StatusCode) || !resp.Success() {
			return nil, sdkAPIError("list fields", resp.ApiResp, resp.Code, resp.Msg, resp.RequestId())
		}
		if resp.Data == nil {
			return out, nil
		}
		for _, item := range resp.Data.Items {
			if item == nil {
				continue
			}
			out = append(out, fieldFromSDK(item))
		}
		pageToken = strings.TrimSpace(larkcore.StringValue(resp.Data.PageToken))
		if !larkcore.BoolValue(resp.Data.HasMore) || pageToken == "" {
			return out, nil
		}
	}
}

func fieldFromSDK(item *larkbitable.AppTableFieldForList) Field {
	field := Field{
		Name: larkcore.StringValue(item.FieldName),
		Type: larkcore.IntValue(item.Type),
		ID:   larkcore.StringValue(item.FieldId),
	}
	if item.Property != nil {
		for _, opt := range item.Property.Options {
			if opt == nil {
				continue
			}
			if name := strings.TrimSpace(larkcore.StringValue(opt.Name)); name != "" {
				field.Options = append(field.Options, name)
			}
		}
	}
	return field
}
