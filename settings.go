// settings.go: Settings manager
//
// The SettingsManager ties registered properties to one YAML file: it loads
// and resolves every property, keeps the values in use, and persists them
// back in registration order with an atomic temp file + rename.
//
// Philosophy:
// - Missing or broken values never prevent startup, they fall back to defaults
// - The file is rewritten only when its content would change
// - Problems are reported through the ErrorHandler and the audit trail
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// SettingsManager loads, serves and saves a set of registered properties.
//
// Thread safety: Lookup and Set may be called concurrently; Load, Reload and
// Save are serialized.
type SettingsManager struct {
	file string

	defs   []Definition
	byPath map[string]int

	values   map[string]any      // values in use (overlay included)
	persist  map[string]any      // values written on Save (file content only)
	failures map[string][]string // conversion failures of the last load

	doc       *Document
	loaded    bool
	savedHash uint64

	envPrefix   string
	wrap        func(Reader) Reader
	audit       *AuditLogger
	onError     ErrorHandler
	migration   MigrationService
	autoMigrate bool

	mu sync.RWMutex
}

// SettingsOption configures a SettingsManager.
type SettingsOption func(*SettingsManager)

// WithAudit records load, save and conversion events on logger.
func WithAudit(logger *AuditLogger) SettingsOption {
	return func(sm *SettingsManager) { sm.audit = logger }
}

// WithErrorHandler replaces the default handler, which logs through the
// standard logger.
func WithErrorHandler(handler ErrorHandler) SettingsOption {
	return func(sm *SettingsManager) {
		if handler != nil {
			sm.onError = handler
		}
	}
}

// WithMigration replaces PlainMigration.
func WithMigration(m MigrationService) SettingsOption {
	return func(sm *SettingsManager) {
		if m != nil {
			sm.migration = m
		}
	}
}

// WithoutAutoMigrate disables the rewrite on Load when migration is needed.
func WithoutAutoMigrate() SettingsOption {
	return func(sm *SettingsManager) { sm.autoMigrate = false }
}

// WithReader layers a Reader over the loaded document, for example a
// FlagOverlay. Values coming from the overlay are served by Lookup but are
// not written back on Save.
func WithReader(wrap func(base Reader) Reader) SettingsOption {
	return func(sm *SettingsManager) { sm.wrap = wrap }
}

// WithEnvironment lets environment variables override every registered
// property, and every field of bean properties. Variable names come from
// EnvName(prefix, path). Like WithReader
// overrides, they are served but never saved. Flags layered with WithReader
// take precedence over the environment. An empty prefix disables it.
func WithEnvironment(prefix string) SettingsOption {
	return func(sm *SettingsManager) { sm.envPrefix = prefix }
}

// NewSettingsManager creates a manager for file. Properties must be
// registered before Load.
func NewSettingsManager(file string, opts ...SettingsOption) (*SettingsManager, error) {
	if file == "" {
		return nil, errors.New(ErrCodeInvalidPath, "settings file path cannot be empty")
	}

	sm := &SettingsManager{
		file:        file,
		byPath:      make(map[string]int),
		values:      make(map[string]any),
		persist:     make(map[string]any),
		failures:    make(map[string][]string),
		migration:   PlainMigration{},
		autoMigrate: true,
		onError: func(err error, path string) {
			log.Printf("eidos: %s: %v", path, err)
		},
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm, nil
}

// Register adds properties in the order they will be written. Registering
// a path twice is an error.
func (sm *SettingsManager) Register(defs ...Definition) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, def := range defs {
		if def == nil {
			continue
		}
		path := def.Path()
		if _, err := splitPath(path); err != nil || path == "" {
			return errors.New(ErrCodeInvalidPath, fmt.Sprintf("invalid property path '%s'", path))
		}
		if _, dup := sm.byPath[path]; dup {
			return errors.New(ErrCodeInvalidBinding, fmt.Sprintf("property '%s' is already registered", path))
		}
		sm.byPath[path] = len(sm.defs)
		sm.defs = append(sm.defs, def)
	}
	return nil
}

// File returns the settings file path.
func (sm *SettingsManager) File() string { return sm.file }

// Load reads the file and resolves every registered property. A missing file
// is treated as empty. Conversion failures are reported to the ErrorHandler
// and the property falls back to its default. When the migration service
// asks for it, the file is rewritten immediately.
func (sm *SettingsManager) Load() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	doc, existed, err := sm.readDocument()
	if err != nil {
		return err
	}

	var r Reader = doc
	if sm.envPrefix != "" {
		r = NewEnvOverlay(r, sm.envPrefix).BindPaths(envPaths(sm.defs)...)
	}
	if sm.wrap != nil {
		r = sm.wrap(r)
	}
	layered := sm.envPrefix != "" || sm.wrap != nil

	values := make(map[string]any, len(sm.defs))
	persist := make(map[string]any, len(sm.defs))
	failures := make(map[string][]string)
	failed := 0

	for _, def := range sm.defs {
		path := def.Path()
		rec := NewErrorRecorder()
		v, err := def.resolve(r, rec)
		if err != nil {
			return errors.Wrap(err, ErrCodeInvalidBinding, fmt.Sprintf("cannot resolve property '%s'", path)).
				WithContext("file", sm.file)
		}
		values[path] = v
		persist[path] = v
		if layered {
			if fileValue, err := def.resolve(doc, nil); err == nil {
				persist[path] = fileValue
			}
		}

		if rec.HasErrors() {
			failed++
			failures[path] = rec.Messages()
			for _, msg := range rec.Messages() {
				sm.audit.LogConversionError(sm.file, path, msg)
				sm.onError(errors.New(ErrCodeConversionFailed, msg), path)
			}
		}
	}

	sm.doc = doc
	sm.values = values
	sm.persist = persist
	sm.failures = failures
	sm.loaded = true
	sm.savedHash = 0
	if existed {
		sm.savedHash = doc.Hash()
	}
	sm.audit.LogLoad(sm.file, len(sm.defs), failed)

	if !sm.autoMigrate {
		return nil
	}
	reasons := sm.migration.Reasons(doc, sm.defs, failures)
	if len(reasons) == 0 {
		return nil
	}
	sm.audit.LogMigration(sm.file, reasons)
	return sm.saveLocked()
}

// Reload discards the values in use and loads the file again.
func (sm *SettingsManager) Reload() error {
	return sm.Load()
}

func (sm *SettingsManager) readDocument() (*Document, bool, error) {
	if _, err := os.Stat(sm.file); err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), false, nil
		}
		return nil, false, errors.Wrap(err, ErrCodeIOError, "cannot stat settings file").
			WithContext("file", sm.file)
	}
	doc, err := LoadDocument(sm.file)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// NeedsMigration reports the migration service's reasons for the last load.
func (sm *SettingsManager) NeedsMigration() ([]string, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.loaded {
		return nil, errors.New(ErrCodeSettingsNotLoaded, "settings have not been loaded")
	}
	return sm.migration.Reasons(sm.doc, sm.defs, sm.failures), nil
}

// Errors returns the conversion failures of the last load, keyed by property path.
func (sm *SettingsManager) Errors() map[string][]string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make(map[string][]string, len(sm.failures))
	for k, v := range sm.failures {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Loaded reports whether Load has completed successfully.
func (sm *SettingsManager) Loaded() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.loaded
}

// Save writes every registered property, in registration order, to a fresh
// document and replaces the file atomically. Nothing is written when the
// content equals what was last loaded or saved.
func (sm *SettingsManager) Save() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.saveLocked()
}

func (sm *SettingsManager) saveLocked() error {
	doc, err := sm.exportLocked()
	if err != nil {
		return err
	}

	hash := doc.Hash()
	if sm.savedHash != 0 && hash == sm.savedHash {
		return nil
	}

	if err := doc.WriteFile(sm.file); err != nil {
		sm.onError(err, sm.file)
		return err
	}

	sm.savedHash = hash
	sm.doc = doc
	sm.audit.LogSave(sm.file, hash)
	return nil
}

// Document returns the document Save would write for the current values.
func (sm *SettingsManager) Document() (*Document, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.exportLocked()
}

func (sm *SettingsManager) exportLocked() (*Document, error) {
	doc := NewDocument()
	for _, def := range sm.defs {
		path := def.Path()
		v, ok := sm.persist[path]
		if !ok {
			v = def.defaultValue()
		}
		exported, err := def.export(v)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeExportFailed, fmt.Sprintf("cannot export property '%s'", path))
		}
		if exported == nil {
			continue
		}
		if err := doc.Set(path, exported); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// atomicWrite writes data to a temp file in the target directory and renames
// it over path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to create settings directory").
			WithContext("dir", dir)
	}

	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d", filepath.Base(path), timecache.CachedTimeNano()))
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to write temp file").
			WithContext("path", tempPath)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, ErrCodeIOError, "failed to rename temp file").
			WithContext("path", path)
	}
	return nil
}

// Lookup returns the value in use for p: the loaded value, the value given
// to Set, or the default when neither exists.
func Lookup[T any](sm *SettingsManager, p *Property[T]) T {
	if p.IsConstant() {
		return p.Default()
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if v, ok := sm.values[p.Path()].(T); ok {
		return v
	}
	return p.Default()
}

// Set replaces the value of a registered property. The change is persisted
// by the next Save.
func Set[T any](sm *SettingsManager, p *Property[T], value T) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.byPath[p.Path()]; !ok {
		return errors.New(ErrCodeUnregisteredProperty, fmt.Sprintf("property '%s' is not registered", p.Path()))
	}
	if p.IsConstant() {
		return errors.New(ErrCodeInvalidBinding, fmt.Sprintf("property '%s' is constant", p.Path()))
	}
	sm.values[p.Path()] = value
	sm.persist[p.Path()] = value
	return nil
}
