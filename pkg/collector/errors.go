package collector

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrSubmissionInProgress rejects a Submit while another one is running on
// the same Pipeline.
var ErrSubmissionInProgress = errors.New("collector: a submission is already in progress")

// ErrNoMatchedFields means no logical field resolved to a remote column, so
// nothing was sent.
var ErrNoMatchedFields = errors.New("collector: no record field matches the table schema")

// ConfigIncompleteError lists the settings that must be filled in first.
type ConfigIncompleteError struct {
	Missing []string
}

func (e *ConfigIncompleteError) Error() string {
	return fmt.Sprintf("collector: feishu settings incomplete, missing %s", strings.Join(e.Missing, ", "))
}

// AuthError wraps a failed tenant token exchange.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("collector: get tenant access token failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SchemaFetchError wraps a failed field listing.
type SchemaFetchError struct {
	Err error
}

func (e *SchemaFetchError) Error() string {
	return fmt.Sprintf("collector: fetch table fields failed: %v", e.Err)
}

func (e *SchemaFetchError) Unwrap() error { return e.Err }

// SubmissionError is the terminal failure of a record submission. Code and
// Msg come from the last create-record response; Err is set for transport
// failures.
type SubmissionError struct {
	HTTPStatus int
	Code       int
	Msg        string
	LogID      string
	Attempts   int
	Err        error
}

func (e *SubmissionError) Error() string {
	var b strings.Builder
	b.WriteString("collector: create record failed")
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
		return b.String()
	}
	if !httpOK(e.HTTPStatus) {
		fmt.Fprintf(&b, " http=%d", e.HTTPStatus)
	}
	fmt.Fprintf(&b, " code=%d msg=%s", e.Code, e.Msg)
	if e.LogID != "" {
		fmt.Fprintf(&b, " log_id=%s", e.LogID)
	}
	return b.String()
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ValidationError rejects a record that lacks a required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("collector: invalid record field %s: %s", e.Field, e.Reason)
}
