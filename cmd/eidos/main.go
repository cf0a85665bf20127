// eidos: command-line tooling for typed settings files
//
// Set EIDOS_AUDIT_FILE to record every write (".jsonl" or SQLite ".db").
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/agilira/eidos"
	"github.com/agilira/eidos/cmd/cli"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	manager := cli.NewManager()

	if auditFile := os.Getenv("EIDOS_AUDIT_FILE"); auditFile != "" {
		config := eidos.DefaultAuditConfig()
		config.OutputFile = auditFile
		config.FlushInterval = 0

		auditLogger, err := eidos.NewAuditLogger(config)
		if err != nil {
			return err
		}
		defer func() { _ = auditLogger.Close() }()
		manager.WithAudit(auditLogger)
	}

	return manager.Run(args)
}
