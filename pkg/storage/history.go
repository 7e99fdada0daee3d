// Package storage keeps a local SQLite ledger of record submissions.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/httprunner/ScysCollector/pkg/collector"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	historyTable     = "submissions"
	defaultListLimit = 20
)

var historyColumns = []string{
	"id",
	"title",
	"url",
	"app_token",
	"table_id",
	"state",
	"attempts",
	"fallback",
	"record_id",
	"code",
	"msg",
	"fields",
	"created_at",
}

// HistoryStore persists collector.HistoryEntry rows. It implements
// collector.Recorder.
type HistoryStore struct {
	db   *sql.DB
	path string
}

var _ collector.Recorder = (*HistoryStore)(nil)

// OpenHistory opens (and migrates) the ledger at path. An empty path uses
// ResolveDatabasePath.
func OpenHistory(path string) (*HistoryStore, error) {
	if strings.TrimSpace(path) == "" {
		resolved, err := ResolveDatabasePath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "storage: open sqlite database failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := prepareHistorySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("storage: history ledger opened")
	return &HistoryStore{db: db, path: path}, nil
}

func prepareHistorySchema(db *sql.DB) error {
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT,
			url TEXT,
			app_token TEXT NOT NULL,
			table_id TEXT NOT NULL,
			state TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			record_id TEXT,
			code INTEGER,
			msg TEXT,
			created_at INTEGER NOT NULL
		);`, quoteIdent(historyTable))
	if _, err := db.Exec(createTable); err != nil {
		return pkgerrors.Wrap(err, "storage: init sqlite schema failed")
	}
	// Add the columns an older ledger file may lack.
	for _, col := range []struct {
		name string
		typ  string
	}{
		{"fallback", "INTEGER NOT NULL DEFAULT 0"},
		{"fields", "TEXT"},
	} {
		if err := ensureSQLiteColumn(db, historyTable, col.name, col.typ); err != nil {
			return err
		}
	}
	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_url ON %s(url);`, historyTable, quoteIdent(historyTable)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created ON %s(created_at DESC);`, historyTable, quoteIdent(historyTable)),
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return pkgerrors.Wrap(err, "storage: init sqlite indexes failed")
		}
	}
	return nil
}

// Path returns the database file in use.
func (s *HistoryStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// RecordSubmission inserts entry, assigning an id and creation time when they
// are unset.
func (s *HistoryStore) RecordSubmission(ctx context.Context, entry collector.HistoryEntry) error {
	if s == nil || s.db == nil {
		return pkgerrors.New("storage: history store nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	fields, err := formatFields(entry.Fields)
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(historyColumns)), ", ")
	quoted := make([]string, len(historyColumns))
	for i, col := range historyColumns {
		quoted[i] = quoteIdent(col)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(historyTable), strings.Join(quoted, ", "), placeholders)
	_, err = s.db.ExecContext(ctx, stmt,
		entry.ID,
		entry.Title,
		entry.URL,
		entry.AppToken,
		entry.TableID,
		entry.State,
		entry.Attempts,
		boolToInt(entry.Fallback),
		entry.RecordID,
		entry.Code,
		entry.Msg,
		fields,
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return pkgerrors.Wrap(err, "storage: sqlite insert failed")
	}
	return nil
}

// List returns the newest entries first. A non-positive limit uses 20.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]collector.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC, rowid DESC LIMIT ?",
		selectColumns(), quoteIdent(historyTable))
	return s.query(ctx, query, limit)
}

// FindSuccessByURL returns the latest successful submission of url to the
// table ref, or nil. An empty ref.AppToken (an unresolved wiki base) matches
// on the table id alone.
func (s *HistoryStore) FindSuccessByURL(ctx context.Context, ref feishusdk.BitableRef, url string) (*collector.HistoryEntry, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}
	where := "url = ? AND state = ? AND table_id = ?"
	args := []any{url, collector.StateSuccess.String(), strings.TrimSpace(ref.TableID)}
	if appToken := strings.TrimSpace(ref.AppToken); appToken != "" {
		where += " AND app_token = ?"
		args = append(args, appToken)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_at DESC, rowid DESC LIMIT 1",
		selectColumns(), quoteIdent(historyTable), where)
	entries, err := s.query(ctx, query, args...)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (s *HistoryStore) query(ctx context.Context, query string, args ...any) ([]collector.HistoryEntry, error) {
	if s == nil || s.db == nil {
		return nil, pkgerrors.New("storage: history store nil")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "storage: query history failed")
	}
	defer rows.Close()

	var entries []collector.HistoryEntry
	for rows.Next() {
		var (
			entry     collector.HistoryEntry
			title     sql.NullString
			url       sql.NullString
			recordID  sql.NullString
			code      sql.NullInt64
			msg       sql.NullString
			fallback  int
			fields    sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&entry.ID, &title, &url, &entry.AppToken, &entry.TableID, &entry.State,
			&entry.Attempts, &fallback, &recordID, &code, &msg, &fields, &createdAt); err != nil {
			return nil, pkgerrors.Wrap(err, "storage: scan history row failed")
		}
		entry.Title = title.String
		entry.URL = url.String
		entry.RecordID = recordID.String
		entry.Code = int(code.Int64)
		entry.Msg = msg.String
		entry.Fallback = fallback != 0
		entry.CreatedAt = time.UnixMilli(createdAt)
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &entry.Fields); err != nil {
				log.Warn().Err(err).Str("id", entry.ID).Msg("storage: decode history fields failed")
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "storage: iterate history rows failed")
	}
	return entries, nil
}

// Close releases the database.
func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func selectColumns() string {
	quoted := make([]string, len(historyColumns))
	for i, col := range historyColumns {
		quoted[i] = quoteIdent(col)
	}
	return strings.Join(quoted, ", ")
}

func formatFields(fields collector.WireFields) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", pkgerrors.Wrap(err, "storage: marshal fields payload")
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
