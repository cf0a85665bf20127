// Utility functions for the eidos CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/agilira/eidos"
	"github.com/agilira/go-errors"
)

// requireArgs fails with the command usage when an argument is empty.
func requireArgs(usage string, args ...string) error {
	for _, a := range args {
		if a == "" {
			return errors.New(eidos.ErrCodeInvalidPath, "usage: eidos "+usage)
		}
	}
	return nil
}

// loadOrCreate loads filePath, or returns an empty document when it does not exist.
func loadOrCreate(filePath string) (*eidos.Document, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return eidos.NewDocument(), nil
	}
	return eidos.LoadDocument(filePath)
}

// save writes doc atomically and records the write when auditing.
func (m *Manager) save(doc *eidos.Document, filePath string) error {
	if err := doc.WriteFile(filePath); err != nil {
		return err
	}
	m.auditLogger.LogSave(filePath, doc.Hash())
	return nil
}

// parseValue parses a command-line value to bool, int64, float64 or string.
// Only "true" and "false" are booleans so that "0" and "1" stay integers.
func parseValue(value string) any {
	lowerValue := strings.ToLower(value)
	if lowerValue == "true" || lowerValue == "false" {
		return lowerValue == "true"
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

// readTyped reads path as kind using the eidos property types.
func readTyped(doc *eidos.Document, path, kind string) (any, error) {
	rec := eidos.NewErrorRecorder()

	var (
		value any
		ok    bool
		err   error
	)
	switch strings.ToLower(kind) {
	case "", "auto":
		value, ok = doc.Value(path)
	case "int":
		value, ok, err = eidos.Int64().Read(doc, path, rec)
	case "float":
		value, ok, err = eidos.Float64().Read(doc, path, rec)
	case "bool":
		value, ok, err = eidos.Bool().Read(doc, path, rec)
	case "string":
		value, ok, err = eidos.String().Read(doc, path, rec)
	case "duration":
		value, ok, err = eidos.Duration().Read(doc, path, rec)
	case "list":
		value, ok, err = eidos.ListOf(eidos.String()).Read(doc, path, rec)
	default:
		return nil, errors.New(eidos.ErrCodeUnsupportedType, fmt.Sprintf("unknown type '%s'", kind))
	}

	if err != nil {
		return nil, err
	}
	if rec.HasErrors() {
		return nil, rec.Err()
	}
	if !ok {
		return nil, errors.New(eidos.ErrCodeInvalidPath, fmt.Sprintf("path '%s' not found", path))
	}
	return value, nil
}

// formatValue renders scalars plainly, lists in brackets and sections as YAML.
func formatValue(value any) string {
	switch v := value.(type) {
	case eidos.Section:
		doc := eidos.NewDocument()
		if err := doc.Set("", v); err != nil {
			return fmt.Sprintf("%v", v)
		}
		data, err := doc.Marshal()
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return strings.TrimRight(string(data), "\n")
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = formatValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []string:
		return "[" + strings.Join(v, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
