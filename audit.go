// audit.go: Audit trail for settings load and save operations
//
// Every load, save, migration decision and conversion failure of a
// SettingsManager can be recorded as a structured event. Events are buffered
// and flushed to a pluggable backend (JSONL file or SQLite database).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Audit event names
const (
	EventSettingsLoaded    = "settings_loaded"
	EventSettingsSaved     = "settings_saved"
	EventConversionError   = "conversion_error"
	EventMigrationRequired = "migration_required"
)

// AuditEvent represents a single auditable event
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       AuditLevel     `json:"level"`
	Event       string         `json:"event"`
	Component   string         `json:"component"`
	FilePath    string         `json:"file_path,omitempty"`
	Property    string         `json:"property,omitempty"`
	Message     string         `json:"message,omitempty"`
	ProcessID   int            `json:"process_id"`
	ProcessName string         `json:"process_name"`
	Context     map[string]any `json:"context,omitempty"`
	Checksum    string         `json:"checksum"`
}

// AuditConfig configures the audit trail. The backend is chosen from the
// output file extension: ".jsonl" writes JSON lines, anything else (including
// an empty path) writes to a SQLite database.
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
}

// DefaultAuditConfig returns the default configuration, writing to the shared
// SQLite database under the system temp directory.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    256,
		FlushInterval: 5 * time.Second,
	}
}

// AuditLogger buffers audit events and flushes them to its backend, either
// when the buffer is full, on the flush interval, or on Flush/Close.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
	processName string
}

// NewAuditLogger creates an audit logger with the backend selected by config.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if config.BufferSize < 0 || config.FlushInterval < 0 {
		return nil, errors.New(ErrCodeInvalidAuditConfig, "buffer size and flush interval must not be negative")
	}
	if config.BufferSize == 0 {
		config.BufferSize = 1
	}

	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidAuditConfig, "failed to initialize audit backend").
			WithContext("output_file", config.OutputFile)
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: processName(),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an audit event. A nil or disabled logger ignores the call.
func (al *AuditLogger) Log(level AuditLevel, event, filePath, property, message string, context map[string]any) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	auditEvent := AuditEvent{
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		Event:       event,
		Component:   "eidos",
		FilePath:    filePath,
		Property:    property,
		Message:     message,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = checksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe()
	}
	al.bufferMu.Unlock()
}

// LogLoad records a settings load with the number of resolved properties.
func (al *AuditLogger) LogLoad(filePath string, properties, failures int) {
	level := AuditInfo
	if failures > 0 {
		level = AuditWarn
	}
	al.Log(level, EventSettingsLoaded, filePath, "", "",
		map[string]any{"properties": properties, "failures": failures})
}

// LogConversionError records a value that could not be converted.
func (al *AuditLogger) LogConversionError(filePath, property, message string) {
	al.Log(AuditWarn, EventConversionError, filePath, property, message, nil)
}

// LogSave records a settings file write.
func (al *AuditLogger) LogSave(filePath string, hash uint64) {
	al.Log(AuditCritical, EventSettingsSaved, filePath, "", "",
		map[string]any{"hash": fmt.Sprintf("%016x", hash)})
}

// LogMigration records that the settings file needs to be rewritten.
func (al *AuditLogger) LogMigration(filePath string, reasons []string) {
	al.Log(AuditWarn, EventMigrationRequired, filePath, "", "",
		map[string]any{"reasons": reasons})
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	if al == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	if err := al.flushBufferUnsafe(); err != nil {
		return err
	}
	return al.backend.Flush()
}

// Close flushes pending events and releases the backend. Safe to call twice.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	var err error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}
		if ferr := al.Flush(); ferr != nil {
			err = ferr
		}
		if cerr := al.backend.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, ErrCodeIOError, "failed to close audit backend")
		}
	})
	return err
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush()
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend (caller must hold bufferMu)
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to write audit events")
	}
	al.buffer = al.buffer[:0]
	return nil
}

// checksum creates a tamper-detection digest of the event content
func checksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%v",
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.FilePath, event.Property, event.Message, event.Context)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}

func processName() string {
	if len(os.Args) > 0 {
		return filepath.Base(os.Args[0])
	}
	return "eidos"
}
