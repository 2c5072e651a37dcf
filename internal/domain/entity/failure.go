package entity

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	FailureNotFound FailureKind = "not-found"
	FailureTimeout  FailureKind = "timeout"
	FailureStale    FailureKind = "stale-reference"
	FailureBlocked  FailureKind = "blocked-interaction"
	FailureDriver   FailureKind = "driver"
)

// InteractionError is returned by the element interaction layer. Kind is one of
// the enumerated failure kinds; Err keeps the driver error for errors.Is/As.
type InteractionError struct {
	Op      string
	Locator Locator
	Kind    FailureKind
	Err     error
}

func (e *InteractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Locator, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Locator, e.Kind, e.Err)
}

func (e *InteractionError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err, or "" when err is not an InteractionError.
func KindOf(err error) FailureKind {
	var ie *InteractionError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
