// recorder.go: Conversion error accumulation for mapping passes
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"fmt"
	"strings"

	"github.com/agilira/go-errors"
)

// ErrorRecorder collects "could not convert" events during one top-level
// mapping call without aborting it. A recorder must not be shared between
// concurrent calls.
type ErrorRecorder struct {
	hasError bool
	messages []string
}

// NewErrorRecorder creates an empty recorder.
func NewErrorRecorder() *ErrorRecorder {
	return &ErrorRecorder{}
}

// Record notes a conversion failure at path.
func (r *ErrorRecorder) Record(path, format string, args ...any) {
	if r == nil {
		return
	}
	r.hasError = true
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = "'" + path + "': " + msg
	}
	r.messages = append(r.messages, msg)
}

// HasErrors reports whether any failure was recorded.
func (r *ErrorRecorder) HasErrors() bool {
	return r != nil && r.hasError
}

// Messages returns the recorded messages in order of occurrence.
func (r *ErrorRecorder) Messages() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}

// Err aggregates the recorded failures into a single error, or nil.
func (r *ErrorRecorder) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return errors.New(ErrCodeConversionFailed, strings.Join(r.messages, "; ")).
		WithContext("failures", len(r.messages))
}

// Reset clears the recorder for reuse by the same caller.
func (r *ErrorRecorder) Reset() {
	if r == nil {
		return
	}
	r.hasError = false
	r.messages = r.messages[:0]
}
