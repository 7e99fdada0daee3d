package feishusdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/pkg/errors"
)

type wikiNodeInfo struct {
	ObjToken string `json:"obj_token"`
	ObjType  string `json:"obj_type"`
}

// ResolveAppToken fills ref.AppToken for wiki-hosted bases by looking up the
// wiki node. Refs that already carry an app token are left untouched.
func (c *Client) ResolveAppToken(ctx context.Context, ref *BitableRef, token string) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "ensure bitable app token failed")
		}
	}()

	if c == nil {
		return errors.New("feishu: client is nil")
	}
	if ref == nil {
		return errors.New("feishu: bitable reference is nil")
	}
	if strings.TrimSpace(ref.AppToken) != "" {
		return nil
	}
	wikiToken := strings.TrimSpace(ref.WikiToken)
	if wikiToken == "" {
		return errors.New("feishu: bitable app token not found in url")
	}

	if cached, ok := c.loadCachedAppToken(wikiToken); ok {
		ref.AppToken = cached
		return nil
	}

	val, err, _ := c.appTokenGroup.Do(wikiToken, func() (interface{}, error) {
		node, err := c.fetchWikiNode(ctx, wikiToken, token)
		if err != nil {
			return "", err
		}
		if node.ObjToken == "" {
			return "", errors.New("feishu: wiki node response missing obj_token")
		}
		if node.ObjType != "bitable" {
			return "", fmt.Errorf("feishu: wiki node type %q is not bitable", node.ObjType)
		}
		return node.ObjToken, nil
	})
	if err != nil {
		return err
	}

	appToken, _ := val.(string)
	if strings.TrimSpace(appToken) == "" {
		return errors.New("feishu: wiki node response missing obj_token")
	}

	c.storeAppTokenCache(wikiToken, appToken)
	ref.AppToken = appToken
	return nil
}

func (c *Client) loadCachedAppToken(wikiToken string) (string, bool) {
	c.appTokenMu.RLock()
	defer c.appTokenMu.RUnlock()
	token, ok := c.appTokenCache[wikiToken]
	return token, ok
}

func (c *Client) storeAppTokenCache(wikiToken, appToken string) {
	c.appTokenMu.Lock()
	defer c.appTokenMu.Unlock()
	if c.appTokenCache == nil {
		c.appTokenCache = make(map[string]string)
	}
	c.appTokenCache[wikiToken] = appToken
}

func (c *Client) fetchWikiNode(ctx context.Context, wikiToken, token string) (wikiNodeInfo, error) {
	var empty wikiNodeInfo
	if err := requireToken(token); err != nil {
		return empty, err
	}
	if c.useHTTP() {
		path := fmt.Sprintf("/open-apis/wiki/v2/spaces/get_node?token=%s", url.QueryEscape(wikiToken))
		status, raw, err := c.doJSONRequest(ctx, http.MethodGet, path, token, nil)
		if err != nil {
			return empty, err
		}
		var resp struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
			Data struct {
				Node wikiNodeInfo `json:"node"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return empty, errors.Wrap(err, "feishu: decode wiki node response")
		}
		if !isHTTPSuccess(status) || resp.Code != 0 {
			return empty, &APIError{Action: "wiki get_node", HTTPStatus: status, Code: resp.Code, Msg: resp.Msg}
		}
		return resp.Data.Node, nil
	}

	if c.wikiAPI == nil {
		return empty, errors.New("feishu: wiki sdk client is nil")
	}
	resp, err := c.wikiAPI.GetNode(ctx, wikiToken, c.tenantRequestOptions(token)...)
	if err != nil {
		return empty, errors.Wrap(err, "feishu: wiki get_node request failed")
	}
	if resp == nil || resp.ApiResp == nil {
		return empty, errors.New("feishu: empty response when getting wiki node")
	}
	if !resp.Success() {
		return empty, sdkAPIError("wiki get_node", resp.ApiResp, resp.Code, resp.Msg, resp.RequestId())
	}
	if resp.Data == nil || resp.Data.Node == nil {
		return empty, errors.New("feishu: wiki node response missing node")
	}

	return wikiNodeInfo{
		ObjToken: larkcore.StringValue(resp.Data.Node.ObjToken),
		ObjType:  larkcore.StringValue(resp.Data.Node.ObjType),
	}, nil
}
