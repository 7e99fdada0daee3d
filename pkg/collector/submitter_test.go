package collector

import (
	"context"
	"errors"
	"io"
	"net/http"
	"reflect"
	"testing"

	"github.com/httprunner/ScysCollector/internal/feishusdk"
)

var testRef = feishusdk.BitableRef{AppToken: "bascnA", TableID: "tblA"}

func tracesEqual(got []SubmitState, want ...SubmitState) bool {
	return reflect.DeepEqual(got, want)
}

func TestSubmitPrimarySuccessSendsOneRequest(t *testing.T) {
	fake := &fakeBackend{responses: []*feishusdk.CreateRecordResult{ok("rec1")}}
	outcome, err := NewSubmitter(fake, nil).Submit(context.Background(), testRef, "t-1", fullRecord(), fullSchema)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if len(fake.created) != 1 || outcome.Attempts != 1 {
		t.Fatalf("expected exactly one request, got %d", len(fake.created))
	}
	if outcome.State != StateSuccess || outcome.RecordID != "rec1" {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
	if !tracesEqual(outcome.Trace, StateInitial, StateAwaitingPrimary, StateSuccess) {
		t.Fatalf("unexpected trace %v", outcome.Trace)
	}
	if outcome.UsedFallback() {
		t.Fatalf("fallback must not be used")
	}
}

func TestSubmitURLConvFailRetriesOnceWithText(t *testing.T) {
	fake := &fakeBackend{responses: []*feishusdk.CreateRecordResult{urlConvFail(), ok("rec2")}}
	rec := fullRecord()
	outcome, err := NewSubmitter(fake, nil).Submit(context.Background(), testRef, "t-1", rec, fullSchema)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if len(fake.created) != 2 {
		t.Fatalf("expected primary plus one fallback, got %d requests", len(fake.created))
	}
	if _, isCell := fake.created[0]["生财链接"].(feishusdk.URLCell); !isCell {
		t.Fatalf("primary request must carry a url cell, got %#v", fake.created[0]["生财链接"])
	}
	retry := fake.created[1]
	for _, name := range []string{"生财链接", "飞书链接"} {
		if _, isString := retry[name].(string); !isString {
			t.Fatalf("fallback %s must be a plain string, got %#v", name, retry[name])
		}
	}
	if retry["精华"] != true {
		t.Fatalf("fallback keeps checkbox booleans, got %#v", retry["精华"])
	}
	if !reflect.DeepEqual(retry["标签"], rec.Tags) {
		t.Fatalf("fallback keeps multi-select lists, got %#v", retry["标签"])
	}
	if outcome.State != StateSuccess || outcome.RecordID != "rec2" {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
	if !tracesEqual(outcome.Trace, StateInitial, StateAwaitingPrimary, StateAwaitingFallback, StateSuccess) {
		t.Fatalf("unexpected trace %v", outcome.Trace)
	}
	if outcome.Encoding != EncodingText {
		t.Fatalf("last payload should be text encoded")
	}
}

func TestSubmitFallbackLeavesTimestampOut(t *testing.T) {
	schema := []feishusdk.Field{
		{Name: "标题", Type: feishusdk.FieldTypeText},
		{Name: "链接", Type: feishusdk.FieldTypeURL},
		{Name: "timestamp", Type: feishusdk.FieldTypeDateTime},
	}
	rec := Record{Title: "A", URL: "https://scys.com/x", Timestamp: 1700000000000}
	fake := &fakeBackend{responses: []*feishusdk.CreateRecordResult{urlConvFail(), ok("rec3")}}
	if _, err := NewSubmitter(fake, nil).Submit(context.Background(), testRef, "t-1", rec, schema); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(fake.created) != 2 {
		t.Fatalf("expected primary and fallback requests, got %d", len(fake.created))
	}
	if fake.created[0]["timestamp"] != int64(1700000000000) {
		t.Fatalf("primary request carries the timestamp, got %#v", fake.created[0]["timestamp"])
	}
	want := WireFields{"标题": "A", "链接": "https://scys.com/x"}
	if !reflect.DeepEqual(WireFields(fake.created[1]), want) {
		t.Fatalf("unexpected fallback payload %#v", fake.created[1])
	}
}

func TestSubmitFallbackFailureIsTerminal(t *testing.T) {
	fake := &fakeBackend{responses: []*feishusdk.CreateRecordResult{urlConvFail(), urlConvFail(), ok("never")}}
	outcome, err := NewSubmitter(fake, nil).Submit(context.Background(), testRef, "t-1", fullRecord(), fullSchema)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if subErr.Code != 1254068 || subErr.Attempts != 2 {
		t.Fatalf("unexpected submission error %#v", subErr)
	}
	if len(fake.created) != 2 || outcome.State != StateFailed {
		t.Fatalf("fallback must run exactly once, got %d requests state=%s", len(fake.created), outcome.State)
	}
}

func TestSubmitOtherCodeFailsWithoutRetry(t *testing.T) {
	fake := &fakeBackend{responses: []*feishusdk.CreateRecordResult{
		{HTTPStatus: 200, Code: 1254045, Msg: "FieldNameNotFound"},
	}}
	outcome, err := NewSubmitter(fake, nil).Submit(context.Background(), testRef, "t-1", fullRecord(), fullSchema)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) || subErr.Msg != "FieldNameNotFound" {
		t.Fatalf("expected SubmissionError with msg, got %v", err)
	}
	if len(fake.created) != 1 {
		t.Fatalf("no retry expected, got %d requests", len(fake.created))
	}
	if !tracesEqual(outcome.Trace, StateInitial, StateAwaitingPrimary, StateFailed) {
		t.Fatalf("unexpected trace %v", outcome.Trace)
	}
}

func TestSubmitURLConvFailOnHTTPErrorDoesNotRetry(t *testing.T) {
	fake := &fakeBackend{responses: []*feishusdk.CreateRecordResult{
		{HTTPStatus: http.StatusBadRequest, Code: 1254068, Msg: "URLFieldConvFail"},
	}}
	_, err := NewSubmitter(fake, nil).Submit(context.Background(), testRef, "t-1", fullRecord(), fullSchema)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) || subErr.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected SubmissionError with http status, got %v", err)
	}
	if len(fake.created) != 1 {
		t.Fatalf("fallback requires an HTTP success, got %d requests", len(fake.created))
	}
}

func TestSubmitTransportErrorFails(t *testing.T) {
	fake := &fakeBackend{createErr: []error{io.ErrUnexpectedEOF}}
	outcome, err := NewSubmitter(fake, nil).Submit(context.Background(), testRef, "t-1", fullRecord(), fullSchema)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("transport error must be wrapped, got %v", err)
	}
	if outcome.State != StateFailed || outcome.Attempts != 1 {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
}

func TestSubmitWithoutMatchedFieldsSendsNothing(t *testing.T) {
	fake := &fakeBackend{}
	schema := []feishusdk.Field{{Name: "无关字段", Type: feishusdk.FieldTypeText}}
	outcome, err := NewSubmitter(fake, nil).Submit(context.Background(), testRef, "t-1", Record{Title: "A"}, schema)
	if !errors.Is(err, ErrNoMatchedFields) {
		t.Fatalf("expected ErrNoMatchedFields, got %v", err)
	}
	if len(fake.created) != 0 || outcome.Attempts != 0 {
		t.Fatalf("no request expected, got %d", len(fake.created))
	}
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := &fakeBackend{responses: []*feishusdk.CreateRecordResult{urlConvFail(), ok("rec3")}}
	outcome, err := NewSubmitter(fake, nil).Submit(ctx, testRef, "t-1", fullRecord(), fullSchema)
	if err != nil || outcome.State != StateSuccess {
		t.Fatalf("submission should run to completion, err=%v", err)
	}
	for i, c := range fake.createCtx {
		if c.Err() != nil {
			t.Fatalf("create %d ran under a cancelled context", i)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from SubmitState
		res  *feishusdk.CreateRecordResult
		err  error
		want SubmitState
	}{
		{StateInitial, nil, nil, StateAwaitingPrimary},
		{StateAwaitingPrimary, ok("r"), nil, StateSuccess},
		{StateAwaitingPrimary, urlConvFail(), nil, StateAwaitingFallback},
		{StateAwaitingPrimary, &feishusdk.CreateRecordResult{HTTPStatus: 200, Code: 1254068, Msg: "other"}, nil, StateFailed},
		{StateAwaitingPrimary, nil, io.EOF, StateFailed},
		{StateAwaitingFallback, ok("r"), nil, StateSuccess},
		{StateAwaitingFallback, urlConvFail(), nil, StateFailed},
		{StateSuccess, nil, io.EOF, StateSuccess},
		{StateFailed, ok("r"), nil, StateFailed},
	}
	for _, tc := range cases {
		if got := transition(tc.from, tc.res, tc.err); got != tc.want {
			t.Fatalf("transition(%s) = %s, want %s", tc.from, got, tc.want)
		}
	}
}
