package entity

import (
	"errors"
	"fmt"
)

// Status is the terminal state of an Outcome.
type Status int

const (
	// StatusUnset is the zero value: the producer never decided. Callers treat it as a failure.
	StatusUnset Status = iota
	StatusSucceeded
	StatusFailed
	// StatusEmpty is a completed operation that legitimately produced no value.
	StatusEmpty
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusEmpty:
		return "empty"
	default:
		return "unset"
	}
}

const unsetMessage = "outcome was never set"

// None is the payload of outcomes that carry no data.
type None struct{}

// Outcome is the uniform result of every page-object and service operation.
// Values are built with Succeed, Fail, Failf or Empty and never modified.
type Outcome[T any] struct {
	status   Status
	data     T
	errorMsg string
}

func Succeed[T any](data T) Outcome[T] {
	return Outcome[T]{status: StatusSucceeded, data: data}
}

func Done() Outcome[None] {
	return Succeed(None{})
}

func Fail[T any](msg string) Outcome[T] {
	if msg == "" {
		msg = "operation failed"
	}
	return Outcome[T]{status: StatusFailed, errorMsg: msg}
}

func Failf[T any](format string, args ...any) Outcome[T] {
	return Fail[T](fmt.Sprintf(format, args...))
}

func Empty[T any]() Outcome[T] {
	return Outcome[T]{status: StatusEmpty}
}

func (o Outcome[T]) Status() Status {
	return o.status
}

// OK reports whether the operation completed, with or without a value.
func (o Outcome[T]) OK() bool {
	return o.status == StatusSucceeded || o.status == StatusEmpty
}

func (o Outcome[T]) Value() (T, bool) {
	if o.status != StatusSucceeded {
		var zero T
		return zero, false
	}
	return o.data, true
}

// Data returns the payload, or the zero value when there is none.
func (o Outcome[T]) Data() T {
	v, _ := o.Value()
	return v
}

func (o Outcome[T]) ErrorMsg() string {
	switch o.status {
	case StatusFailed:
		return o.errorMsg
	case StatusUnset:
		return unsetMessage
	default:
		return ""
	}
}

func (o Outcome[T]) Err() error {
	if o.OK() {
		return nil
	}
	return errors.New(o.ErrorMsg())
}
