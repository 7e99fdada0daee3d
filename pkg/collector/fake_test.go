package collector

import (
	"context"
	"sync"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
)

type fakeBackend struct {
	mu sync.Mutex

	token       string
	tokenErr    error
	tokenCalls  int
	tokenGate   chan struct{}
	tokenEnter  chan struct{}
	schema      []feishusdk.Field
	schemaErr   error
	schemaCalls int

	responses []*feishusdk.CreateRecordResult
	createErr []error
	created   []map[string]any
	createCtx []context.Context

	rows      []feishusdk.BitableRow
	searchErr error
	searches  []feishusdk.SearchOptions
}

func (f *fakeBackend) TenantAccessToken(ctx context.Context) (string, error) {
	if f.tokenEnter != nil {
		f.tokenEnter <- struct{}{}
	}
	if f.tokenGate != nil {
		<-f.tokenGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	if f.token == "" {
		return "t-test", nil
	}
	return f.token, nil
}

func (f *fakeBackend) ListFields(ctx context.Context, ref feishusdk.BitableRef, token string) ([]feishusdk.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemaCalls++
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	return f.schema, nil
}

func (f *fakeBackend) CreateRecord(ctx context.Context, ref feishusdk.BitableRef, token string, fields map[string]any) (*feishusdk.CreateRecordResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.created)
	f.created = append(f.created, fields)
	f.createCtx = append(f.createCtx, ctx)
	var err error
	if idx < len(f.createErr) {
		err = f.createErr[idx]
	}
	if err != nil {
		return nil, err
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return &feishusdk.CreateRecordResult{HTTPStatus: 200, Code: 0, RecordID: "rec-default"}, nil
}

func (f *fakeBackend) SearchRecords(ctx context.Context, ref feishusdk.BitableRef, token string, opts feishusdk.SearchOptions) ([]feishusdk.BitableRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, opts)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.rows, nil
}

func ok(recordID string) *feishusdk.CreateRecordResult {
	return &feishusdk.CreateRecordResult{HTTPStatus: 200, Code: 0, Msg: "success", RecordID: recordID}
}

func urlConvFail() *feishusdk.CreateRecordResult {
	return &feishusdk.CreateRecordResult{HTTPStatus: 200, Code: 1254068, Msg: "URLFieldConvFail"}
}

func testSettings() *config.Settings {
	return &config.Settings{
		AppID:     "cli_test",
		AppSecret: "secret",
		TableURL:  "https://foo.feishu.cn/base/bascnA?table=tblA",
		AppToken:  "bascnA",
		TableID:   "tblA",
	}
}

var fullSchema = []feishusdk.Field{
	{Name: "标题", Type: feishusdk.FieldTypeText, ID: "f1"},
	{Name: "类型", Type: feishusdk.FieldTypeSingleSelect, ID: "f2"},
	{Name: "作者", Type: feishusdk.FieldTypeText, ID: "f3"},
	{Name: "精华", Type: feishusdk.FieldTypeCheckbox, ID: "f4"},
	{Name: "是否已阅读", Type: feishusdk.FieldTypeCheckbox, ID: "f5"},
	{Name: "生财链接", Type: feishusdk.FieldTypeURL, ID: "f6"},
	{Name: "飞书链接", Type: feishusdk.FieldTypeURL, ID: "f7"},
	{Name: "启发感悟", Type: feishusdk.FieldTypeText, ID: "f8"},
	{Name: "标签", Type: feishusdk.FieldTypeMultiSelect, ID: "f9", Options: []string{"AI", "创业", "运营"}},
}

func fullRecord() Record {
	return Record{
		Title:       "A",
		Type:        "文章",
		Author:      "亦仁",
		Featured:    Yes,
		IsRead:      No,
		URL:         "https://scys.com/articleDetail/xq_topic/1",
		FeishuLink:  "https://scys.feishu.cn/docx/abc",
		Inspiration: "值得一读",
		Tags:        []string{"AI", "创业"},
	}
}
