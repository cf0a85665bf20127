// settings_test.go: Tests for the settings manager
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

// completeSettings holds every property of testProperties, in registration
// order and canonical form, so loading it needs no rewrite.
const completeSettings = `# managed by tests
server:
  port: 8080
  host: localhost
  timeout: 30s
tags: [a]
log:
  level: INFO
`

type testProperties struct {
	port    *Property[int]
	host    *Property[string]
	timeout *Property[time.Duration]
	tags    *Property[[]string]
	level   *Property[testLevel]
}

func newTestProperties() testProperties {
	return testProperties{
		port:    IntProperty("server.port", 8080),
		host:    StringProperty("server.host", "localhost"),
		timeout: DurationProperty("server.timeout", 30*time.Second),
		tags:    ListProperty("tags", String(), []string{"a"}),
		level:   EnumProperty("log.level", levelInfo),
	}
}

func (p testProperties) all() []Definition {
	return []Definition{p.port, p.host, p.timeout, p.tags, p.level}
}

// handlerLog collects ErrorHandler calls
type handlerLog struct {
	mu    sync.Mutex
	paths []string
	codes []string
}

func (h *handlerLog) handle(err error, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
	h.codes = append(h.codes, errCode(err))
}

func newTestManager(t *testing.T, file string, opts ...SettingsOption) (*SettingsManager, testProperties, *handlerLog) {
	t.Helper()
	handler := &handlerLog{}
	opts = append([]SettingsOption{WithErrorHandler(handler.handle)}, opts...)
	sm, err := NewSettingsManager(file, opts...)
	if err != nil {
		t.Fatalf("NewSettingsManager failed: %v", err)
	}
	props := newTestProperties()
	if err := sm.Register(props.all()...); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return sm, props, handler
}

func readText(t *testing.T, path string) string {
	t.Helper()
	// #nosec G304 -- test file in temp dir
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	return string(data)
}

func TestNewSettingsManager_EmptyPath(t *testing.T) {
	_, err := NewSettingsManager("")
	expectCode(t, err, ErrCodeInvalidPath)
}

func TestSettingsManager_Register(t *testing.T) {
	sm, err := NewSettingsManager(filepath.Join(t.TempDir(), "s.yml"))
	if err != nil {
		t.Fatalf("NewSettingsManager failed: %v", err)
	}

	if err := sm.Register(IntProperty("a", 1), nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	expectCode(t, sm.Register(IntProperty("a", 2)), ErrCodeInvalidBinding)
	expectCode(t, sm.Register(IntProperty("", 2)), ErrCodeInvalidPath)
	expectCode(t, sm.Register(IntProperty("b..c", 2)), ErrCodeInvalidPath)
}

func TestSettingsManager_LoadMissingFileWritesDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.yml")
	sm, props, handler := newTestManager(t, file)

	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !sm.Loaded() {
		t.Error("Loaded should be true")
	}
	if got := Lookup(sm, props.port); got != 8080 {
		t.Errorf("Expected default port, got %d", got)
	}
	if len(handler.paths) != 0 {
		t.Errorf("Missing values are not errors, got %v", handler.paths)
	}

	want := "server:\n  port: 8080\n  host: localhost\n  timeout: 30s\n"
	if text := readText(t, file); !strings.HasPrefix(text, want) {
		t.Errorf("Expected defaults in registration order, got:\n%s", text)
	}
}

func TestSettingsManager_LoadCompleteFileKeepsIt(t *testing.T) {
	file := writeFile(t, "settings.yml", completeSettings)
	sm, props, _ := newTestManager(t, file)

	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	reasons, err := sm.NeedsMigration()
	if err != nil || len(reasons) != 0 {
		t.Errorf("Expected no migration, got %v (%v)", reasons, err)
	}
	if err := sm.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if readText(t, file) != completeSettings {
		t.Error("Unchanged settings must not be rewritten")
	}
	if got := Lookup(sm, props.level); got != levelInfo {
		t.Errorf("Expected INFO, got %v", got)
	}
	if got := Lookup(sm, props.tags); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Expected [a], got %v", got)
	}
}

func TestSettingsManager_InvalidValueFallsBackAndMigrates(t *testing.T) {
	content := strings.Replace(completeSettings, "port: 8080", "port: eighty", 1)
	file := writeFile(t, "settings.yml", content)
	sm, props, handler := newTestManager(t, file)

	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := Lookup(sm, props.port); got != 8080 {
		t.Errorf("Expected default port, got %d", got)
	}

	if len(handler.paths) != 1 || handler.paths[0] != "server.port" {
		t.Fatalf("Expected one handler call for server.port, got %v", handler.paths)
	}
	if handler.codes[0] != ErrCodeConversionFailed {
		t.Errorf("Expected conversion code, got %s", handler.codes[0])
	}
	if errs := sm.Errors(); len(errs["server.port"]) != 1 {
		t.Errorf("Expected recorded failure, got %v", errs)
	}

	if text := readText(t, file); !strings.Contains(text, "port: 8080") || strings.Contains(text, "eighty") {
		t.Errorf("Expected file to be migrated, got:\n%s", text)
	}
}

func TestSettingsManager_WithoutAutoMigrate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.yml")
	sm, _, _ := newTestManager(t, file, WithoutAutoMigrate())

	_, err := sm.NeedsMigration()
	expectCode(t, err, ErrCodeSettingsNotLoaded)

	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("File must not be created without auto-migration")
	}

	reasons, err := sm.NeedsMigration()
	if err != nil {
		t.Fatalf("NeedsMigration failed: %v", err)
	}
	if len(reasons) != 5 || reasons[0] != "'server.port' is missing" {
		t.Errorf("Unexpected reasons: %v", reasons)
	}
}

func TestSettingsManager_CustomMigration(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.yml")
	sm, _, _ := newTestManager(t, file, WithMigration(NoMigration{}))

	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("NoMigration must never trigger a write")
	}

	called := false
	sm2, _, _ := newTestManager(t, file, WithMigration(MigrationFunc(func(r Reader, defs []Definition, failures map[string][]string) []string {
		called = true
		return nil
	})))
	if err := sm2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !called {
		t.Error("MigrationFunc was not consulted")
	}
}

func TestSettingsManager_SetSaveReload(t *testing.T) {
	file := writeFile(t, "settings.yml", completeSettings)
	sm, props, _ := newTestManager(t, file)
	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := Set(sm, props.port, 9000); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Set(sm, props.tags, []string{"x", "y"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := Lookup(sm, props.port); got != 9000 {
		t.Errorf("Lookup after Set: got %d", got)
	}
	if err := sm.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other, otherProps, _ := newTestManager(t, file)
	if err := other.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := Lookup(other, otherProps.port); got != 9000 {
		t.Errorf("Expected persisted port 9000, got %d", got)
	}
	if got := Lookup(other, otherProps.tags); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Expected persisted tags, got %v", got)
	}

	// External edit picked up by Reload
	if err := os.WriteFile(file, []byte(strings.Replace(completeSettings, "host: localhost", "host: example.org", 1)), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := sm.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := Lookup(sm, props.host); got != "example.org" {
		t.Errorf("Expected reloaded host, got %q", got)
	}
	if got := Lookup(sm, props.port); got != 8080 {
		t.Errorf("Reload must discard unsaved values, got %d", got)
	}
}

func TestSettingsManager_SetErrors(t *testing.T) {
	sm, _, _ := newTestManager(t, filepath.Join(t.TempDir(), "s.yml"))

	expectCode(t, Set(sm, IntProperty("unknown", 1), 2), ErrCodeUnregisteredProperty)

	version := ConstantProperty("version", "1.0")
	if err := sm.Register(version); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	expectCode(t, Set(sm, version, "2.0"), ErrCodeInvalidBinding)
	if got := Lookup(sm, version); got != "1.0" {
		t.Errorf("Constant lookup: got %q", got)
	}
}

// overrideReader serves fixed values ahead of a base reader
type overrideReader struct {
	Reader
	values map[string]any
}

func (o overrideReader) Contains(path string) bool {
	if _, ok := o.values[path]; ok {
		return true
	}
	return o.Reader.Contains(path)
}

func (o overrideReader) Scalar(path string) (any, bool) {
	if v, ok := o.values[path]; ok {
		return v, true
	}
	return o.Reader.Scalar(path)
}

func TestSettingsManager_OverlayIsNotPersisted(t *testing.T) {
	file := writeFile(t, "settings.yml", completeSettings)
	sm, props, _ := newTestManager(t, file, WithReader(func(base Reader) Reader {
		return overrideReader{Reader: base, values: map[string]any{"server.port": 9999}}
	}))

	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := Lookup(sm, props.port); got != 9999 {
		t.Errorf("Expected overlay value, got %d", got)
	}

	doc, err := sm.Document()
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if v, _ := doc.Value("server.port"); v != 8080 {
		t.Errorf("Overlay value leaked into the saved document: %v", v)
	}
}

func TestSettingsManager_ConcurrentLookup(t *testing.T) {
	file := writeFile(t, "settings.yml", completeSettings)
	sm, props, _ := newTestManager(t, file)
	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n%2 == 0 {
					_ = Set(sm, props.port, 8000+j)
				} else {
					_ = Lookup(sm, props.port)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestAtomicWrite_Errors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// A regular file where a directory is needed
	err := atomicWrite(filepath.Join(blocker, "settings.yml"), []byte("a: 1\n"))
	expectCode(t, err, ErrCodeIOError)
}
