package collector

import (
	"context"

	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/rs/zerolog/log"
)

const (
	urlFieldConvFailCode = 1254068
	urlFieldConvFailMsg  = "URLFieldConvFail"
)

// SubmitState is a step of the submission state machine.
type SubmitState int

const (
	StateInitial SubmitState = iota
	StateAwaitingPrimary
	StateAwaitingFallback
	StateSuccess
	StateFailed
)

func (s SubmitState) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateAwaitingPrimary:
		return "AWAITING_PRIMARY_RESPONSE"
	case StateAwaitingFallback:
		return "AWAITING_FALLBACK_RESPONSE"
	case StateSuccess:
		return "SUCCESS"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s is SUCCESS or FAILED.
func (s SubmitState) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

// RecordCreator creates one bitable record.
type RecordCreator interface {
	CreateRecord(ctx context.Context, ref feishusdk.BitableRef, token string, fields map[string]any) (*feishusdk.CreateRecordResult, error)
}

// SubmitOutcome describes how a submission ended.
type SubmitOutcome struct {
	State SubmitState
	// Trace holds every state visited, starting with StateInitial.
	Trace []SubmitState
	// Attempts counts the create-record requests issued.
	Attempts int
	RecordID string
	// Fields is the payload of the last request.
	Fields     WireFields
	Encoding   Encoding
	HTTPStatus int
	Code       int
	Msg        string
	LogID      string
	Err        error
}

// UsedFallback reports whether the text encoding was sent.
func (o *SubmitOutcome) UsedFallback() bool {
	for _, s := range o.Trace {
		if s == StateAwaitingFallback {
			return true
		}
	}
	return false
}

func (o *SubmitOutcome) advance(next SubmitState) {
	o.State = next
	o.Trace = append(o.Trace, next)
}

func (o *SubmitOutcome) observe(res *feishusdk.CreateRecordResult, err error) {
	o.Err = err
	if res == nil {
		return
	}
	o.HTTPStatus = res.HTTPStatus
	o.Code = res.Code
	o.Msg = res.Msg
	o.LogID = res.LogID
	o.RecordID = res.RecordID
}

func (o *SubmitOutcome) failure() *SubmissionError {
	return &SubmissionError{
		HTTPStatus: o.HTTPStatus,
		Code:       o.Code,
		Msg:        o.Msg,
		LogID:      o.LogID,
		Attempts:   o.Attempts,
		Err:        o.Err,
	}
}

func isURLFieldConvFail(res *feishusdk.CreateRecordResult) bool {
	return res != nil && httpOK(res.HTTPStatus) &&
		res.Code == urlFieldConvFailCode && res.Msg == urlFieldConvFailMsg
}

// httpOK treats an unset status as success, like the feishu client does.
func httpOK(status int) bool {
	return status == 0 || (status >= 200 && status < 300)
}

// transition is the whole state machine: it maps the current state and the
// response to it onto the next state.
func transition(state SubmitState, res *feishusdk.CreateRecordResult, err error) SubmitState {
	switch state {
	case StateInitial:
		return StateAwaitingPrimary
	case StateAwaitingPrimary:
		switch {
		case err == nil && res.Success():
			return StateSuccess
		case err == nil && isURLFieldConvFail(res):
			return StateAwaitingFallback
		default:
			return StateFailed
		}
	case StateAwaitingFallback:
		if err == nil && res.Success() {
			return StateSuccess
		}
		return StateFailed
	default:
		return state
	}
}

// Submitter sends a record with the primary encoding and retries once with
// the text encoding on a URL conversion failure.
type Submitter struct {
	creator RecordCreator
	mapper  *Mapper
}

// NewSubmitter returns a Submitter. A nil mapper uses the default table.
func NewSubmitter(creator RecordCreator, mapper *Mapper) *Submitter {
	if mapper == nil {
		mapper = NewMapper(nil)
	}
	return &Submitter{creator: creator, mapper: mapper}
}

// Submit runs the state machine to a terminal state. The returned error is a
// *SubmissionError exactly when the outcome is StateFailed. Create requests
// are not cancelled by ctx once issued.
func (s *Submitter) Submit(ctx context.Context, ref feishusdk.BitableRef, token string, rec Record, schema []feishusdk.Field) (*SubmitOutcome, error) {
	ctx = context.WithoutCancel(ctx)
	outcome := &SubmitOutcome{State: StateInitial, Trace: []SubmitState{StateInitial}}

	for !outcome.State.Terminal() {
		var enc Encoding
		switch outcome.State {
		case StateInitial:
			outcome.advance(transition(StateInitial, nil, nil))
			continue
		case StateAwaitingPrimary:
			enc = EncodingPrimary
		case StateAwaitingFallback:
			enc = EncodingText
			log.Info().Int("code", outcome.Code).Str("msg", outcome.Msg).
				Msg("collector: url field conversion failed, retrying with text encoding")
		}

		fields := s.mapper.Build(rec, schema, enc)
		outcome.Fields = fields
		outcome.Encoding = enc
		if len(fields) == 0 {
			outcome.Err = ErrNoMatchedFields
			outcome.advance(StateFailed)
			continue
		}

		res, err := s.creator.CreateRecord(ctx, ref, token, fields)
		outcome.Attempts++
		outcome.observe(res, err)
		outcome.advance(transition(outcome.State, res, err))
	}

	if outcome.State == StateFailed {
		log.Warn().Err(outcome.Err).Int("attempts", outcome.Attempts).
			Int("code", outcome.Code).Str("msg", outcome.Msg).
			Msg("collector: create record failed")
		return outcome, outcome.failure()
	}
	log.Info().Str("record_id", outcome.RecordID).Int("attempts", outcome.Attempts).
		Bool("fallback", outcome.UsedFallback()).Msg("collector: record created")
	return outcome, nil
}
