package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/httprunner/ScysCollector/pkg/collector"
	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := OpenHistory(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryRecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1700000000000)

	first := collector.HistoryEntry{
		Title: "A", URL: "https://scys.com/p/1", AppToken: "bascnA", TableID: "tblA",
		State: collector.StateFailed.String(), Attempts: 2, Fallback: true,
		Code: 1254068, Msg: "URLFieldConvFail", CreatedAt: base,
	}
	second := collector.HistoryEntry{
		Title: "B", URL: "https://scys.com/p/2", AppToken: "bascnA", TableID: "tblA",
		State: collector.StateSuccess.String(), Attempts: 1, RecordID: "rec2",
		Fields:    collector.WireFields{"标题": "B", "精华": true},
		CreatedAt: base.Add(time.Minute),
	}
	for _, e := range []collector.HistoryEntry{first, second} {
		if err := store.RecordSubmission(ctx, e); err != nil {
			t.Fatalf("RecordSubmission failed: %v", err)
		}
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	newest := entries[0]
	if newest.Title != "B" || newest.ID == "" || newest.RecordID != "rec2" || !newest.Succeeded() {
		t.Fatalf("unexpected newest entry %#v", newest)
	}
	if newest.Fields["标题"] != "B" || newest.Fields["精华"] != true {
		t.Fatalf("fields payload not restored: %#v", newest.Fields)
	}
	if !newest.CreatedAt.Equal(second.CreatedAt) {
		t.Fatalf("created_at mismatch: %v", newest.CreatedAt)
	}
	older := entries[1]
	if !older.Fallback || older.Attempts != 2 || older.Code != 1254068 || older.Fields != nil {
		t.Fatalf("unexpected older entry %#v", older)
	}

	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit not applied: %d %v", len(limited), err)
	}
}

var refA = feishusdk.BitableRef{AppToken: "a", TableID: "t"}

func TestHistoryFindSuccessByURL(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	url := "https://scys.com/p/1"

	if err := store.RecordSubmission(ctx, collector.HistoryEntry{
		URL: url, AppToken: "a", TableID: "t", State: collector.StateFailed.String(),
	}); err != nil {
		t.Fatalf("RecordSubmission failed: %v", err)
	}
	found, err := store.FindSuccessByURL(ctx, refA, url)
	if err != nil || found != nil {
		t.Fatalf("failed submissions must not count, got %#v %v", found, err)
	}

	if err := store.RecordSubmission(ctx, collector.HistoryEntry{
		URL: url, AppToken: "a", TableID: "t", State: collector.StateSuccess.String(), RecordID: "rec1",
	}); err != nil {
		t.Fatalf("RecordSubmission failed: %v", err)
	}
	found, err = store.FindSuccessByURL(ctx, refA, " "+url+" ")
	if err != nil || found == nil || found.RecordID != "rec1" {
		t.Fatalf("expected success entry, got %#v %v", found, err)
	}
}

func TestHistoryFindSuccessByURLScopesToTable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	url := "https://scys.com/p/1"
	if err := store.RecordSubmission(ctx, collector.HistoryEntry{
		URL: url, AppToken: "bascnOLD", TableID: "tblOLD", State: collector.StateSuccess.String(), RecordID: "recOld",
	}); err != nil {
		t.Fatalf("RecordSubmission failed: %v", err)
	}

	found, err := store.FindSuccessByURL(ctx, feishusdk.BitableRef{AppToken: "bascnNEW", TableID: "tblNEW"}, url)
	if err != nil || found != nil {
		t.Fatalf("another table must not see the old save, got %#v %v", found, err)
	}
	found, err = store.FindSuccessByURL(ctx, feishusdk.BitableRef{AppToken: "bascnNEW", TableID: "tblOLD"}, url)
	if err != nil || found != nil {
		t.Fatalf("same table id in another base must not match, got %#v %v", found, err)
	}
	found, err = store.FindSuccessByURL(ctx, feishusdk.BitableRef{AppToken: "bascnOLD", TableID: "tblOLD"}, url)
	if err != nil || found == nil || found.RecordID != "recOld" {
		t.Fatalf("expected the old table save, got %#v %v", found, err)
	}
	found, err = store.FindSuccessByURL(ctx, feishusdk.BitableRef{TableID: "tblOLD"}, url)
	if err != nil || found == nil {
		t.Fatalf("unresolved wiki ref should match on table id, got %#v %v", found, err)
	}
}

func TestHistoryMigratesOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE submissions (
		id TEXT PRIMARY KEY, title TEXT, url TEXT, app_token TEXT NOT NULL, table_id TEXT NOT NULL,
		state TEXT NOT NULL, attempts INTEGER NOT NULL DEFAULT 0, record_id TEXT, code INTEGER,
		msg TEXT, created_at INTEGER NOT NULL)`); err != nil {
		t.Fatalf("create old table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO submissions (id, app_token, table_id, state, created_at) VALUES ('old', 'a', 't', 'SUCCESS', 1)`); err != nil {
		t.Fatalf("insert old row: %v", err)
	}
	db.Close()

	store, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	defer store.Close()
	entries, err := store.List(context.Background(), 10)
	if err != nil || len(entries) != 1 || entries[0].ID != "old" || entries[0].Fallback {
		t.Fatalf("unexpected migrated rows %#v %v", entries, err)
	}
}

func TestResolveDatabasePathHonorsEnv(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "nested", "h.sqlite")
	t.Setenv(EnvHistoryDBPath, custom)
	got, err := ResolveDatabasePath()
	if err != nil || got != custom {
		t.Fatalf("ResolveDatabasePath() = %q, %v", got, err)
	}
}

func TestPipelineRecordsIntoStore(t *testing.T) {
	store := openTestStore(t)
	backend := &stubBackend{}
	settings := &config.Settings{
		AppID: "cli", AppSecret: "s", TableURL: "https://foo.feishu.cn/base/bascnA?table=tblA",
		AppToken: "bascnA", TableID: "tblA",
	}
	p := collector.NewPipeline(backend, collector.WithRecorder(store))
	if _, err := p.Submit(context.Background(), settings, collector.Record{Title: "A", URL: "https://scys.com/p/9"}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	found, err := store.FindSuccessByURL(context.Background(), feishusdk.BitableRef{AppToken: "bascnA", TableID: "tblA"}, "https://scys.com/p/9")
	if err != nil || found == nil || found.RecordID != "rec-store" || found.TableID != "tblA" {
		t.Fatalf("pipeline outcome not stored: %#v %v", found, err)
	}
}

type stubBackend struct{}

func (stubBackend) TenantAccessToken(ctx context.Context) (string, error) { return "t", nil }

func (stubBackend) ListFields(ctx context.Context, ref feishusdk.BitableRef, token string) ([]feishusdk.Field, error) {
	return []feishusdk.Field{
		{Name: "标题", Type: feishusdk.FieldTypeText},
		{Name: "生财链接", Type: feishusdk.FieldTypeURL},
	}, nil
}

func (stubBackend) CreateRecord(ctx context.Context, ref feishusdk.BitableRef, token string, fields map[string]any) (*feishusdk.CreateRecordResult, error) {
	return &feishusdk.CreateRecordResult{HTTPStatus: 200, RecordID: "rec-store"}, nil
}
