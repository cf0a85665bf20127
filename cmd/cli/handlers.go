// Command handlers for the eidos CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"strings"

	"github.com/agilira/eidos"
	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// handleConfigGet prints the value at a path, optionally converted to a type.
func (m *Manager) handleConfigGet(ctx *orpheus.Context) error {
	filePath, path := ctx.GetArg(0), ctx.GetArg(1)
	if err := requireArgs("config get <file> <path>", filePath, path); err != nil {
		return err
	}

	doc, err := eidos.LoadDocument(filePath)
	if err != nil {
		return err
	}

	value, err := readTyped(doc, path, ctx.GetFlagString("type"))
	if err != nil {
		return err
	}

	fmt.Fprintln(m.out, formatValue(value))
	return nil
}

// handleConfigSet writes a value and saves atomically. A missing file is created.
func (m *Manager) handleConfigSet(ctx *orpheus.Context) error {
	filePath, path, raw := ctx.GetArg(0), ctx.GetArg(1), ctx.GetArg(2)
	if err := requireArgs("config set <file> <path> <value>", filePath, path, raw); err != nil {
		return err
	}

	doc, err := loadOrCreate(filePath)
	if err != nil {
		return err
	}

	value := parseValue(raw)
	if err := doc.Set(path, value); err != nil {
		return errors.Wrap(err, eidos.ErrCodeInvalidPath, "failed to set value")
	}
	if err := m.save(doc, filePath); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Set %s = %v in %s\n", path, value, filePath)
	return nil
}

// handleConfigDelete removes a path and saves atomically.
func (m *Manager) handleConfigDelete(ctx *orpheus.Context) error {
	filePath, path := ctx.GetArg(0), ctx.GetArg(1)
	if err := requireArgs("config delete <file> <path>", filePath, path); err != nil {
		return err
	}

	doc, err := eidos.LoadDocument(filePath)
	if err != nil {
		return err
	}
	if !doc.Delete(path) {
		return errors.New(eidos.ErrCodeInvalidPath, fmt.Sprintf("path '%s' not found", path))
	}
	if err := m.save(doc, filePath); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Deleted %s from %s\n", path, filePath)
	return nil
}

// handleConfigKeys lists leaf paths in document order.
func (m *Manager) handleConfigKeys(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if err := requireArgs("config keys <file>", filePath); err != nil {
		return err
	}

	doc, err := eidos.LoadDocument(filePath)
	if err != nil {
		return err
	}

	prefix := ctx.GetFlagString("prefix")
	found := 0
	for _, key := range doc.Keys() {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		value, _ := doc.Value(key)
		fmt.Fprintf(m.out, "%s = %s\n", key, formatValue(value))
		found++
	}

	if found == 0 {
		fmt.Fprintln(m.out, "No keys found")
	}
	return nil
}

// handleConfigCheck parses a file and reports its size and content hash.
func (m *Manager) handleConfigCheck(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if err := requireArgs("config check <file>", filePath); err != nil {
		return err
	}

	doc, err := eidos.LoadDocument(filePath)
	if err != nil {
		fmt.Fprintf(m.out, "Invalid settings file %s: %v\n", filePath, err)
		return err
	}

	fmt.Fprintf(m.out, "Valid settings file: %s\n", filePath)
	fmt.Fprintf(m.out, "  sections: %d\n", doc.Len())
	fmt.Fprintf(m.out, "  values:   %d\n", len(doc.Keys()))
	fmt.Fprintf(m.out, "  hash:     %016x\n", doc.Hash())
	return nil
}

// handleConfigNormalize rewrites a file through Document, which fixes the
// indentation and resolves anchors and merge keys.
func (m *Manager) handleConfigNormalize(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if err := requireArgs("config normalize <file>", filePath); err != nil {
		return err
	}

	doc, err := eidos.LoadDocument(filePath)
	if err != nil {
		return err
	}

	target := ctx.GetFlagString("output")
	if target == "" {
		target = filePath
	}
	if err := m.save(doc, target); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Normalized %s -> %s\n", filePath, target)
	return nil
}
