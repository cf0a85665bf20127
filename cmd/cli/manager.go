// Package cli provides the command-line interface for eidos settings files.
//
// The CLI works directly on YAML documents through eidos.Document, so every
// read goes through the same path syntax and transformer chain that
// applications use, and every write is atomic and order preserving.
//
// Architecture:
// - Manager: command setup and routing (Orpheus)
// - Handlers: one function per command
// - Utils: document loading, value parsing and typed reads
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"io"
	"os"

	"github.com/agilira/eidos"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Version is reported by --version.
const Version = "1.0.0"

// Manager wires the eidos commands into an Orpheus application.
type Manager struct {
	app         *orpheus.App
	out         io.Writer
	auditLogger *eidos.AuditLogger // Optional audit integration
}

// NewManager creates a CLI manager writing to stdout.
func NewManager() *Manager {
	app := orpheus.New("eidos").
		SetDescription("Typed configuration file tooling").
		SetVersion(Version)

	manager := &Manager{
		app: app,
		out: os.Stdout,
	}

	manager.setupConfigCommands()

	return manager
}

// WithAudit records every file write made by the CLI.
func (m *Manager) WithAudit(auditLogger *eidos.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// SetOutput redirects command output.
func (m *Manager) SetOutput(w io.Writer) *Manager {
	if w != nil {
		m.out = w
	}
	return m
}

// Run executes the CLI with args (without the program name).
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// setupConfigCommands configures the 'config' command group.
func (m *Manager) setupConfigCommands() {
	configCmd := orpheus.NewCommand("config", "Settings file operations")

	// config get <file> <path> [--type=auto]
	getCmd := configCmd.Subcommand("get", "Read a value", m.handleConfigGet)
	getCmd.AddFlag("type", "t", "auto", "Value type (auto|int|float|bool|string|duration|list)")

	// config set <file> <path> <value>
	configCmd.Subcommand("set", "Write a value", m.handleConfigSet)

	// config delete <file> <path>
	configCmd.Subcommand("delete", "Remove a value", m.handleConfigDelete)

	// config keys <file> [--prefix=]
	keysCmd := configCmd.Subcommand("keys", "List leaf paths", m.handleConfigKeys)
	keysCmd.AddFlag("prefix", "p", "", "Path prefix filter")

	// config check <file>
	configCmd.Subcommand("check", "Parse a file and report its structure", m.handleConfigCheck)

	// config normalize <file> [--output=]
	normalizeCmd := configCmd.Subcommand("normalize", "Rewrite a file in canonical form", m.handleConfigNormalize)
	normalizeCmd.AddFlag("output", "o", "", "Write to this file instead of replacing the input")

	m.app.AddCommand(configCmd)
}
