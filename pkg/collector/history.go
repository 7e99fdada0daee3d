package collector

import (
	"context"
	"time"
)

// HistoryEntry is one submission as kept in the local ledger.
type HistoryEntry struct {
	ID       string
	Title    string
	URL      string
	AppToken string
	TableID  string
	State    string
	Attempts int
	Fallback bool
	RecordID string
	Code     int
	Msg      string
	// Fields is the last payload sent.
	Fields    WireFields
	CreatedAt time.Time
}

// Succeeded reports whether the entry reached SUCCESS.
func (e HistoryEntry) Succeeded() bool {
	return e.State == StateSuccess.String()
}

// Recorder stores submission outcomes. Recording errors never change a
// submission's result.
type Recorder interface {
	RecordSubmission(ctx context.Context, entry HistoryEntry) error
}
