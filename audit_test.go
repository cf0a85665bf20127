// audit_test.go: Tests for the audit trail
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newJSONLLogger(t *testing.T, mutate func(*AuditConfig)) (*AuditLogger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	config := DefaultAuditConfig()
	config.OutputFile = path
	config.FlushInterval = 0
	if mutate != nil {
		mutate(&config)
	}
	logger, err := NewAuditLogger(config)
	if err != nil {
		t.Fatalf("NewAuditLogger failed: %v", err)
	}
	return logger, path
}

func readAuditEvents(t *testing.T, path string) []AuditEvent {
	t.Helper()
	// #nosec G304 -- test file in temp dir
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("Invalid audit line %q: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}
	return events
}

func TestAuditLevel_String(t *testing.T) {
	levels := map[AuditLevel]string{
		AuditInfo:      "INFO",
		AuditWarn:      "WARN",
		AuditCritical:  "CRITICAL",
		AuditLevel(42): "UNKNOWN",
	}
	for level, want := range levels {
		if got := level.String(); got != want {
			t.Errorf("AuditLevel(%d).String() = %s, want %s", level, got, want)
		}
	}
}

func TestNewAuditLogger_InvalidConfig(t *testing.T) {
	config := DefaultAuditConfig()
	config.BufferSize = -1
	_, err := NewAuditLogger(config)
	expectCode(t, err, ErrCodeInvalidAuditConfig)
}

func TestAuditLogger_JSONL(t *testing.T) {
	logger, path := newJSONLLogger(t, nil)

	logger.LogLoad("settings.yml", 4, 1)
	logger.LogConversionError("settings.yml", "server.port", "cannot convert")
	logger.LogMigration("settings.yml", []string{"'tags' is missing"})
	logger.LogSave("settings.yml", 0xabc)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}

	events := readAuditEvents(t, path)
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}

	want := []struct {
		event string
		level AuditLevel
	}{
		{EventSettingsLoaded, AuditWarn},
		{EventConversionError, AuditWarn},
		{EventMigrationRequired, AuditWarn},
		{EventSettingsSaved, AuditCritical},
	}
	for i, w := range want {
		e := events[i]
		if e.Event != w.event || e.Level != w.level {
			t.Errorf("Event %d: expected %s/%s, got %s/%s", i, w.event, w.level, e.Event, e.Level)
		}
		if e.Component != "eidos" || e.Checksum == "" || e.ProcessID == 0 {
			t.Errorf("Event %d missing metadata: %+v", i, e)
		}
	}
	if events[1].Property != "server.port" {
		t.Errorf("Expected property on conversion event, got %q", events[1].Property)
	}
	if events[3].Context["hash"] != "0000000000000abc" {
		t.Errorf("Unexpected hash context: %v", events[3].Context)
	}
}

func TestAuditLogger_MinLevelAndDisabled(t *testing.T) {
	logger, path := newJSONLLogger(t, func(c *AuditConfig) { c.MinLevel = AuditWarn })
	logger.LogLoad("a.yml", 1, 0)
	logger.LogSave("a.yml", 1)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	events := readAuditEvents(t, path)
	if len(events) != 1 || events[0].Event != EventSettingsSaved {
		t.Errorf("Expected only the save event, got %+v", events)
	}

	disabled, path := newJSONLLogger(t, func(c *AuditConfig) { c.Enabled = false })
	disabled.LogSave("a.yml", 1)
	if err := disabled.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if events := readAuditEvents(t, path); len(events) != 0 {
		t.Errorf("Disabled logger wrote %d events", len(events))
	}
}

func TestAuditLogger_BufferFlushesWhenFull(t *testing.T) {
	logger, path := newJSONLLogger(t, func(c *AuditConfig) { c.BufferSize = 2 })
	defer logger.Close()

	logger.LogSave("a.yml", 1)
	if events := readAuditEvents(t, path); len(events) != 0 {
		t.Errorf("Expected buffered event, found %d on disk", len(events))
	}
	logger.LogSave("a.yml", 2)
	if events := readAuditEvents(t, path); len(events) != 2 {
		t.Errorf("Expected full buffer to flush, found %d on disk", len(events))
	}
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var logger *AuditLogger
	logger.LogLoad("a", 1, 0)
	logger.LogSave("a", 1)
	if err := logger.Flush(); err != nil {
		t.Errorf("Nil Flush: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Nil Close: %v", err)
	}
}

func TestAuditLogger_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	config := DefaultAuditConfig()
	config.OutputFile = dbPath
	config.FlushInterval = 0

	logger, err := NewAuditLogger(config)
	if err != nil {
		t.Fatalf("NewAuditLogger failed: %v", err)
	}
	logger.LogConversionError("settings.yml", "server.port", "bad value")
	logger.LogMigration("settings.yml", []string{"'a' is missing"})
	if err := logger.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&count); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows, got %d", count)
	}

	var level, context string
	if err := db.QueryRow("SELECT level, context FROM audit_events WHERE event = ?", EventMigrationRequired).
		Scan(&level, &context); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if level != "WARN" || !strings.Contains(context, "is missing") {
		t.Errorf("Unexpected row: level=%s context=%s", level, context)
	}
}

func TestSettingsManager_AuditTrail(t *testing.T) {
	logger, auditPath := newJSONLLogger(t, nil)
	content := strings.Replace(completeSettings, "level: INFO", "level: LOUD", 1)
	file := writeFile(t, "settings.yml", content)

	sm, _, _ := newTestManager(t, file, WithAudit(logger))
	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var names []string
	for _, e := range readAuditEvents(t, auditPath) {
		names = append(names, e.Event)
	}
	want := []string{EventConversionError, EventSettingsLoaded, EventMigrationRequired, EventSettingsSaved}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Expected events %v, got %v", want, names)
	}
}
