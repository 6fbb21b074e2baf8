package models

import (
	"encoding/json"
	"fmt"

	e "github.com/gartstein/kyp/internal/credit/errors"
)

// Status tags a stage output.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the tagged output of a pipeline stage: exactly one of a success
// value or a stage error.
type Result[T any] struct {
	value *T
	err   *e.Error
}

// Success wraps a stage payload.
func Success[T any](v *T) Result[T] {
	return Result[T]{value: v}
}

// Failure wraps a stage error. Errors that are not stage errors become
// unexpected_error.
func Failure[T any](err error) Result[T] {
	if se, ok := e.As(err); ok {
		return Result[T]{err: se}
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result[T]{err: e.New(e.KindUnexpected, "%s", msg)}
}

// From builds a Result from the usual (value, error) pair.
func From[T any](v *T, err error) Result[T] {
	if err != nil || v == nil {
		return Failure[T](err)
	}
	return Success(v)
}

func (r Result[T]) Status() Status {
	if r.err == nil && r.value != nil {
		return StatusSuccess
	}
	return StatusError
}

// Value returns the payload when the result is a success.
func (r Result[T]) Value() (*T, bool) {
	return r.value, r.Status() == StatusSuccess
}

// Err returns the stage error, or nil on success.
func (r Result[T]) Err() *e.Error {
	if r.Status() == StatusSuccess {
		return nil
	}
	if r.err == nil {
		return e.New(e.KindUnexpected, "empty result")
	}
	return r.err
}

// MarshalJSON flattens the payload next to a "status" field, or emits
// {"status":"error","error":kind,"message":...}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Status() != StatusSuccess {
		return json.Marshal(struct {
			Status Status `json:"status"`
			*e.Error
		}{StatusError, r.Err()})
	}
	body, err := json.Marshal(r.value)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("result payload must be an object: %w", err)
	}
	fields["status"] = json.RawMessage(`"success"`)
	return json.Marshal(fields)
}

func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var tag struct {
		Status Status `json:"status"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	switch tag.Status {
	case StatusSuccess:
		v := new(T)
		if err := json.Unmarshal(data, v); err != nil {
			return err
		}
		*r = Success(v)
	case StatusError:
		se := &e.Error{}
		if err := json.Unmarshal(data, se); err != nil {
			return err
		}
		*r = Result[T]{err: se}
	default:
		return fmt.Errorf("unknown result status %q", tag.Status)
	}
	return nil
}
