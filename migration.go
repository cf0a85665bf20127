// migration.go: Settings file migration decisions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"fmt"
)

// MigrationService decides whether a loaded settings file must be rewritten.
// It receives the store, the registered properties in registration order,
// and the conversion failures recorded per property path during the load.
type MigrationService interface {
	Reasons(r Reader, defs []Definition, failures map[string][]string) []string
}

// MigrationFunc adapts a function to the MigrationService interface.
type MigrationFunc func(r Reader, defs []Definition, failures map[string][]string) []string

// Reasons implements MigrationService.
func (f MigrationFunc) Reasons(r Reader, defs []Definition, failures map[string][]string) []string {
	return f(r, defs, failures)
}

// PlainMigration asks for a rewrite when a registered property is missing
// from the file or could not be converted. Rewriting fills in defaults and
// replaces broken values with the ones actually in use.
type PlainMigration struct{}

// Reasons implements MigrationService.
func (PlainMigration) Reasons(r Reader, defs []Definition, failures map[string][]string) []string {
	var reasons []string
	for _, def := range defs {
		path := def.Path()
		switch {
		case !def.IsPresent(r):
			reasons = append(reasons, fmt.Sprintf("'%s' is missing", path))
		case len(failures[path]) > 0:
			reasons = append(reasons, fmt.Sprintf("'%s' has %d invalid value(s)", path, len(failures[path])))
		}
	}
	return reasons
}

// NoMigration never asks for a rewrite.
type NoMigration struct{}

// Reasons implements MigrationService.
func (NoMigration) Reasons(Reader, []Definition, map[string][]string) []string { return nil }
