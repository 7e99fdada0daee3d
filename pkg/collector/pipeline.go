package collector

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/rs/zerolog/log"
)

// TokenProvider exchanges app credentials for a tenant access token.
type TokenProvider interface {
	TenantAccessToken(ctx context.Context) (string, error)
}

// SchemaFetcher lists the fields of a bitable table.
type SchemaFetcher interface {
	ListFields(ctx context.Context, ref feishusdk.BitableRef, token string) ([]feishusdk.Field, error)
}

// Backend is everything a submission needs from Feishu. *feishusdk.Client
// implements it.
type Backend interface {
	TokenProvider
	SchemaFetcher
	RecordCreator
}

// session is the per-run state: a fresh token and schema, never reused
// across runs.
type session struct {
	ref    feishusdk.BitableRef
	token  string
	schema []feishusdk.Field
}

// AppTokenResolver looks up the app token of a wiki-hosted base.
// *feishusdk.Client implements it; backends without it need an explicit
// app token.
type AppTokenResolver interface {
	ResolveAppToken(ctx context.Context, ref *feishusdk.BitableRef, token string) error
}

// SchemaBackend is the read-only part of Backend.
type SchemaBackend interface {
	TokenProvider
	SchemaFetcher
}

// openSession validates settings, then fetches one token and the schema.
// A wiki table URL without an app token is resolved after authentication.
func openSession(ctx context.Context, backend SchemaBackend, settings *config.Settings) (*session, error) {
	if missing := settings.Missing(); len(missing) > 0 {
		return nil, &ConfigIncompleteError{Missing: missing}
	}
	ref := settings.Ref()
	resolver, canResolve := backend.(AppTokenResolver)
	if ref.AppToken == "" && !canResolve {
		return nil, &ConfigIncompleteError{Missing: []string{"appToken"}}
	}
	token, err := backend.TenantAccessToken(ctx)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	if ref.AppToken == "" {
		if err := resolver.ResolveAppToken(ctx, &ref, token); err != nil {
			return nil, &SchemaFetchError{Err: err}
		}
		log.Debug().Str("wiki_token", ref.WikiToken).Str("app_token", ref.AppToken).
			Msg("collector: resolved wiki-hosted table")
	}
	schema, err := backend.ListFields(ctx, ref, token)
	if err != nil {
		return nil, &SchemaFetchError{Err: err}
	}
	return &session{ref: ref, token: token, schema: schema}, nil
}

// mapperFor builds the mapper for settings on top of base.
func mapperFor(base EncodingTable, settings *config.Settings) *Mapper {
	if base == nil {
		base = DefaultEncodingTable()
	}
	return NewMapper(base.WithURLTypes(settings.URLFieldTypes...))
}

// Result is a finished submission.
type Result struct {
	Outcome *SubmitOutcome
	Schema  []feishusdk.Field
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder stores every submission outcome in r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithEncodingTable replaces the default encoding table. Settings can still
// add URL type codes on top of it.
func WithEncodingTable(t EncodingTable) Option {
	return func(p *Pipeline) { p.table = t }
}

// Pipeline validates settings, authenticates, fetches the schema and submits
// a record. It refuses to run two submissions at once.
type Pipeline struct {
	backend  Backend
	recorder Recorder
	table    EncodingTable

	running atomic.Bool
}

// NewPipeline returns a Pipeline over backend.
func NewPipeline(backend Backend, opts ...Option) *Pipeline {
	p := &Pipeline{backend: backend}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit runs one submission. Failures before the first create request are
// ConfigIncompleteError, AuthError or SchemaFetchError; a failed create is
// a SubmissionError returned together with the outcome.
func (p *Pipeline) Submit(ctx context.Context, settings *config.Settings, rec Record) (*Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInProgress
	}
	defer p.running.Store(false)

	sess, err := openSession(ctx, p.backend, settings)
	if err != nil {
		log.Error().Err(err).Msg("collector: submission aborted before create")
		return nil, err
	}
	log.Debug().Str("table_id", sess.ref.TableID).Int("fields", len(sess.schema)).
		Msg("collector: schema fetched")

	outcome, err := NewSubmitter(p.backend, mapperFor(p.table, settings)).
		Submit(ctx, sess.ref, sess.token, rec, sess.schema)
	p.remember(ctx, sess.ref, rec, outcome)
	return &Result{Outcome: outcome, Schema: sess.schema}, err
}

func (p *Pipeline) remember(ctx context.Context, ref feishusdk.BitableRef, rec Record, outcome *SubmitOutcome) {
	if p.recorder == nil || outcome == nil {
		return
	}
	entry := HistoryEntry{
		Title:     rec.Title,
		URL:       rec.URL,
		AppToken:  ref.AppToken,
		TableID:   ref.TableID,
		State:     outcome.State.String(),
		Attempts:  outcome.Attempts,
		Fallback:  outcome.UsedFallback(),
		RecordID:  outcome.RecordID,
		Code:      outcome.Code,
		Msg:       outcome.Msg,
		Fields:    outcome.Fields,
		CreatedAt: time.Now(),
	}
	if outcome.Err != nil && entry.Msg == "" {
		entry.Msg = outcome.Err.Error()
	}
	if err := p.recorder.RecordSubmission(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn().Err(err).Msg("collector: record submission history failed")
	}
}
