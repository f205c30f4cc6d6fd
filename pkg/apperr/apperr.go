package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaScenario = "scenario"
	MetaWorker   = "worker"
	MetaSelector = "selector"
	MetaQueries  = "queries"
	MetaURL      = "url"
	MetaTimeout  = "timeout"
	MetaExpected = "expected"
	MetaActual   = "actual"

	StageSession     = "session"
	StageSandbox     = "sandbox"
	StageNavigation  = "navigation"
	StageInteraction = "interaction"
	StageAssertion   = "assertion"
	StageTeardown    = "teardown"

	CodeInternal        = "internal"
	CodeInvalidArgument = "invalid_argument"
	CodeInfrastructure  = "infrastructure"
	CodeElementNotFound = "element_not_found"
	CodeAssertion       = "assertion_failed"
	CodeActionFailed    = "action_failed"
	CodeTimeout         = "timeout"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

// InfrastructureError marks a failure of the harness itself (session or
// sandbox lifecycle), as opposed to a failure of the feature under test.
func InfrastructureError(op, stage, reason string, err error) error {
	return Wrap(op, CodeInfrastructure, err, map[string]any{
		MetaReason: reason,
		MetaStage:  stage,
	})
}

// ElementNotFound reports that a required element did not become visible in
// time. The selector set name and its queries are kept for diagnosis.
func ElementNotFound(op, selector string, queries []string, timeout time.Duration, err error) error {
	if err == nil {
		err = fmt.Errorf("element %q not visible after %s (tried %s)", selector, timeout, strings.Join(queries, " | "))
	}

	return Wrap(op, CodeElementNotFound, err, map[string]any{
		MetaReason:   "element_not_visible",
		MetaStage:    StageInteraction,
		MetaSelector: selector,
		MetaQueries:  queries,
		MetaTimeout:  timeout.String(),
	})
}

func AssertionFailure(op, selector, message string, expected, actual any) error {
	return Wrap(op, CodeAssertion, errors.New(message), map[string]any{
		MetaReason:   "assertion_violated",
		MetaStage:    StageAssertion,
		MetaSelector: selector,
		MetaExpected: expected,
		MetaActual:   actual,
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or "" when
// err carries none.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return ""
}

// Is reports whether any *Error in the chain carries code.
func Is(err error, code string) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}

		if appErr.Code == code {
			return true
		}

		err = appErr.Err
	}

	return false
}

// MetaOf returns a metadata value from the outermost *Error carrying key.
func MetaOf(err error, key string) (any, bool) {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return nil, false
		}

		if v, ok := appErr.Metadata[key]; ok {
			return v, true
		}

		err = appErr.Err
	}

	return nil, false
}
