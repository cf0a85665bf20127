// eidos_test.go: Shared test helpers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agilira/go-errors"
)

// errCode returns the go-errors code of err, or "" when it has none.
func errCode(err error) string {
	if errorCoder, ok := err.(errors.ErrorCoder); ok {
		return string(errorCoder.ErrorCode())
	}
	return ""
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error with code %s, got nil", code)
	}
	if got := errCode(err); got != code {
		t.Fatalf("Expected error code %s, got %q (%v)", code, got, err)
	}
}

// mustParse parses YAML or fails the test.
func mustParse(t *testing.T, yamlText string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(yamlText))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	return doc
}

// writeFile writes content into a fresh temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
