// eidos: Typed configuration binding over hierarchical property stores
//
// Philosophy:
// - The store is untyped (scalars, sequences, mappings), application code is not
// - Conversion problems are recorded, never panicked, and never abort siblings
// - Schema problems (unsupported shapes, clashing names, cycles) fail fast
// - Export order follows declaration order for diff-friendly files
//
// Example Usage:
//   type Server struct {
//       Host  string
//       Port  int
//       HasID bool `config:"has-id"`
//   }
//
//   doc, _ := eidos.LoadDocument("config.yml")
//   server, rec, err := eidos.MapInto[Server](doc, "server")
//   if err != nil {
//       log.Fatal(err) // schema error
//   }
//   if rec.HasErrors() {
//       log.Printf("config degraded: %v", rec.Messages())
//   }
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

// Error codes for eidos operations
const (
	ErrCodeInvalidPath          = "EIDOS_INVALID_PATH"
	ErrCodeUnsupportedType      = "EIDOS_UNSUPPORTED_TYPE"
	ErrCodeDuplicateExportName  = "EIDOS_DUPLICATE_EXPORT_NAME"
	ErrCodeRecursiveType        = "EIDOS_RECURSIVE_TYPE"
	ErrCodeConstructionFailed   = "EIDOS_CONSTRUCTION_FAILED"
	ErrCodeFieldAccess          = "EIDOS_FIELD_ACCESS"
	ErrCodeConversionFailed     = "EIDOS_CONVERSION_FAILED"
	ErrCodeExportFailed         = "EIDOS_EXPORT_FAILED"
	ErrCodeDocumentParse        = "EIDOS_DOCUMENT_PARSE"
	ErrCodeDocumentWrite        = "EIDOS_DOCUMENT_WRITE"
	ErrCodeIOError              = "EIDOS_IO_ERROR"
	ErrCodeInvalidAuditConfig   = "EIDOS_INVALID_AUDIT_CONFIG"
	ErrCodeInvalidBinding       = "EIDOS_INVALID_BINDING"
	ErrCodeSettingsNotLoaded    = "EIDOS_SETTINGS_NOT_LOADED"
	ErrCodeUnregisteredProperty = "EIDOS_UNREGISTERED_PROPERTY"
	ErrCodeWatcherBusy          = "EIDOS_WATCHER_BUSY"
	ErrCodeWatcherStopped       = "EIDOS_WATCHER_STOPPED"
)

// ErrorHandler is called for non-fatal problems found while loading or saving
// settings. It receives the error and the file or property path involved.
type ErrorHandler func(err error, path string)

// TagName is the struct tag consulted for export name overrides and ignores.
//
//	HasID  bool   `config:"has-id"`
//	Cache  *Cache `config:"-"`
const TagName = "config"
