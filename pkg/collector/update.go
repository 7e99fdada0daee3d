package collector

import (
	"context"
	"strings"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrUpdateUnsupported is returned by Pipeline.Update when the backend has
// no UpdateRecord method.
var ErrUpdateUnsupported = errors.New("collector: backend cannot update records")

// RecordUpdater overwrites one existing bitable record.
type RecordUpdater interface {
	UpdateRecord(ctx context.Context, ref feishusdk.BitableRef, token, recordID string, fields map[string]any) (*feishusdk.CreateRecordResult, error)
}

// recordOverwrite turns every create of the submit state machine into an
// update of recordID, so the URL text fallback applies to updates too.
type recordOverwrite struct {
	updater  RecordUpdater
	recordID string
}

func (o recordOverwrite) CreateRecord(ctx context.Context, ref feishusdk.BitableRef, token string, fields map[string]any) (*feishusdk.CreateRecordResult, error) {
	return o.updater.UpdateRecord(ctx, ref, token, o.recordID, fields)
}

// Update overwrites recordID with rec. Errors follow Submit.
func (p *Pipeline) Update(ctx context.Context, settings *config.Settings, recordID string, rec Record) (*Result, error) {
	updater, ok := p.backend.(RecordUpdater)
	if !ok {
		return nil, ErrUpdateUnsupported
	}
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return nil, errors.New("collector: record id is empty")
	}
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInProgress
	}
	defer p.running.Store(false)

	sess, err := openSession(ctx, p.backend, settings)
	if err != nil {
		log.Error().Err(err).Str("record_id", recordID).Msg("collector: update aborted before request")
		return nil, err
	}

	outcome, err := NewSubmitter(recordOverwrite{updater: updater, recordID: recordID}, mapperFor(p.table, settings)).
		Submit(ctx, sess.ref, sess.token, rec, sess.schema)
	if outcome != nil && outcome.RecordID == "" && outcome.State == StateSuccess {
		outcome.RecordID = recordID
	}
	p.remember(ctx, sess.ref, rec, outcome)
	return &Result{Outcome: outcome, Schema: sess.schema}, err
}
