// config_binder.go: Fluent configuration binding onto plain variables
//
// The binder collects binding intents and resolves them in one Apply call.
// Every binding is a Property read, so scalars, lists and beans go through
// the same transformer chain and mapper as the rest of the package.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"fmt"
	"time"

	"github.com/agilira/go-errors"
)

// binding resolves one target and returns the assignment to run on success
type binding struct {
	path    string
	resolve func(r Reader, rec *ErrorRecorder) (commit func(), err error)
}

// ConfigBinder binds configuration values to variables with a fluent API.
//
//	var (
//	    host    string
//	    port    int
//	    timeout time.Duration
//	)
//	err := eidos.NewConfigBinder(doc).
//	    BindString(&host, "server.host", "localhost").
//	    BindInt(&port, "server.port", 8080).
//	    BindDuration(&timeout, "server.timeout", 30*time.Second).
//	    Apply()
//
// Targets are only written when every binding resolved cleanly.
type ConfigBinder struct {
	bindings []binding
	reader   Reader
	rec      *ErrorRecorder
	err      error
}

// NewConfigBinder creates a binder reading from r.
func NewConfigBinder(r Reader) *ConfigBinder {
	return &ConfigBinder{
		bindings: make([]binding, 0, 16),
		reader:   r,
		rec:      NewErrorRecorder(),
	}
}

// BindFromConfig creates a binder over a parsed configuration map.
func BindFromConfig(config map[string]any) *ConfigBinder {
	return NewConfigBinder(NewMapReader(config))
}

// Bind adds a binding of target to p. It is the generic form behind the
// typed Bind* methods.
func Bind[T any](cb *ConfigBinder, target *T, p *Property[T]) *ConfigBinder {
	if cb.err != nil {
		return cb
	}
	if target == nil {
		cb.err = errors.New(ErrCodeInvalidBinding, fmt.Sprintf("nil target for '%s'", p.Path()))
		return cb
	}
	cb.bindings = append(cb.bindings, binding{
		path: p.Path(),
		resolve: func(r Reader, rec *ErrorRecorder) (func(), error) {
			v, err := p.Value(r, rec)
			if err != nil {
				return nil, err
			}
			return func() { *target = v }, nil
		},
	})
	return cb
}

// BindBean maps the sub-tree at path onto target. The current content of
// target is the default used when the path is missing.
func BindBean[T any](cb *ConfigBinder, target *T, path string) *ConfigBinder {
	if cb.err != nil {
		return cb
	}
	if target == nil {
		cb.err = errors.New(ErrCodeInvalidBinding, fmt.Sprintf("nil target for '%s'", path))
		return cb
	}
	p, err := BeanProperty(path, *target)
	if err != nil {
		cb.err = err
		return cb
	}
	return Bind(cb, target, p)
}

func first[T any](values []T, fallback T) T {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}

// BindString binds a string value with optional default.
func (cb *ConfigBinder) BindString(target *string, path string, defaultValue ...string) *ConfigBinder {
	return Bind(cb, target, StringProperty(path, first(defaultValue, "")))
}

// BindInt binds an int value with optional default.
func (cb *ConfigBinder) BindInt(target *int, path string, defaultValue ...int) *ConfigBinder {
	return Bind(cb, target, IntProperty(path, first(defaultValue, 0)))
}

// BindInt64 binds an int64 value with optional default.
func (cb *ConfigBinder) BindInt64(target *int64, path string, defaultValue ...int64) *ConfigBinder {
	return Bind(cb, target, NewProperty(path, Int64(), first(defaultValue, 0)))
}

// BindBool binds a bool value with optional default.
func (cb *ConfigBinder) BindBool(target *bool, path string, defaultValue ...bool) *ConfigBinder {
	return Bind(cb, target, BoolProperty(path, first(defaultValue, false)))
}

// BindFloat64 binds a float64 value with optional default.
func (cb *ConfigBinder) BindFloat64(target *float64, path string, defaultValue ...float64) *ConfigBinder {
	return Bind(cb, target, Float64Property(path, first(defaultValue, 0)))
}

// BindDuration binds a time.Duration value with optional default.
func (cb *ConfigBinder) BindDuration(target *time.Duration, path string, defaultValue ...time.Duration) *ConfigBinder {
	return Bind(cb, target, DurationProperty(path, first(defaultValue, 0)))
}

// BindStrings binds a list of strings with optional default.
func (cb *ConfigBinder) BindStrings(target *[]string, path string, defaultValue ...[]string) *ConfigBinder {
	return Bind(cb, target, ListProperty(path, String(), first(defaultValue, nil)))
}

// Apply resolves every binding. Structural errors and conversion failures
// are reported without touching any target; otherwise all targets are set.
func (cb *ConfigBinder) Apply() error {
	if cb.err != nil {
		return cb.err
	}
	cb.rec.Reset()

	commits := make([]func(), 0, len(cb.bindings))
	for _, b := range cb.bindings {
		commit, err := b.resolve(cb.reader, cb.rec)
		if err != nil {
			return errors.Wrap(err, ErrCodeInvalidBinding, "failed to bind '"+b.path+"'")
		}
		commits = append(commits, commit)
	}
	if err := cb.rec.Err(); err != nil {
		return err
	}

	for _, commit := range commits {
		commit()
	}
	return nil
}

// Recorder returns the conversion failures of the last Apply.
func (cb *ConfigBinder) Recorder() *ErrorRecorder {
	return cb.rec
}
