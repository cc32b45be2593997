package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLookupMiss means a property lookup produced nothing. The field stays
	// unset and the caller carries on.
	ErrLookupMiss = errors.New("property lookup returned no value")

	// ErrNoMatchAvailable means no matching key tier qualified for a controller.
	ErrNoMatchAvailable = errors.New("no matching key available")

	// ErrStructuralMerge means historical and fresh data disagree on shape.
	ErrStructuralMerge = errors.New("structural merge violation")

	// ErrNoSelection means the operator has not selected any port.
	ErrNoSelection = errors.New("no ports are selected")
)

// CollectionError is returned once a collector has exhausted its retries.
type CollectionError struct {
	Collector string
	Attempts  int
	Err       error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collector %s failed after %d attempt(s): %v", e.Collector, e.Attempts, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// NoMatchError names the controller that cannot be expressed in the emitted
// configuration.
type NoMatchError struct {
	Controller string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("controller %q has no usable matching key: it has no bus number, unique ACPI name, bus/device/function, unique registry path or unique PCI id; exclude it and try again", e.Controller)
}

func (e *NoMatchError) Unwrap() error {
	return ErrNoMatchAvailable
}

// MergeViolationError reports historical and fresh values of different
// kinds at the same position.
type MergeViolationError struct {
	Path       string
	Historical string
	Fresh      string
}

func (e *MergeViolationError) Error() string {
	return fmt.Sprintf("cannot merge %s: stored value is a %s but the snapshot holds a %s", e.Path, e.Historical, e.Fresh)
}

func (e *MergeViolationError) Unwrap() error {
	return ErrStructuralMerge
}

// CurationError is one problem with the operator's selection.
type CurationError struct {
	// SelectionIndex is the 1-based port number, or 0 for topology-wide problems.
	SelectionIndex int
	Message        string
}

func (e CurationError) Error() string {
	return e.Message
}

// ValidationErrors collects every CurationError found in one pass.
type ValidationErrors []CurationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return "selection is incomplete: " + strings.Join(msgs, "; ")
}
