package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure a controller reports wraps exactly one of these.
var (
	ErrFetch     = errors.New("fetch failed")
	ErrCreate    = errors.New("create failed")
	ErrUpdate    = errors.New("update failed")
	ErrDelete    = errors.New("delete failed")
	ErrReorder   = errors.New("reorder failed")
	ErrRecord    = errors.New("record failed")
	ErrInvariant = errors.New("invariant violated")

	// ErrSuperseded marks a request whose result was discarded because a
	// newer local intent replaced it.
	ErrSuperseded = errors.New("superseded by a newer change")
	ErrNotFound   = errors.New("task not found")
)

// OpError wraps a failed operation. It unwraps to both Kind and Err, so
// errors.Is matches the kind as well as the transport cause.
type OpError struct {
	Kind   error
	TaskID string
	Draft  *Draft
	Err    error
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.TaskID != "" {
		msg = fmt.Sprintf("%s (task %s)", msg, e.TaskID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opErr(kind error, id string, err error) error {
	return &OpError{Kind: kind, TaskID: id, Err: err}
}

func FetchError(err error) error { return opErr(ErrFetch, "", err) }
func UpdateError(id string, err error) error { return opErr(ErrUpdate, id, err) }
func DeleteError(id string, err error) error { return opErr(ErrDelete, id, err) }
func ReorderError(err error) error { return opErr(ErrReorder, "", err) }
func RecordError(err error) error { return opErr(ErrRecord, "", err) }

func CreateError(d Draft, err error) error {
	return &OpError{Kind: ErrCreate, Draft: &d, Err: err}
}

func InvariantError(format string, args ...any) error {
	return &OpError{Kind: ErrInvariant, Err: fmt.Errorf(format, args...)}
}
