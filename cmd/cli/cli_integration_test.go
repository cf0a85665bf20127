// Integration tests for the eidos CLI commands
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agilira/eidos"
)

// CLITestFixture runs commands against files in an isolated temp directory
type CLITestFixture struct {
	t           *testing.T
	tempDir     string
	out         *bytes.Buffer
	auditLogger *eidos.AuditLogger
}

// NewCLITestFixture creates an isolated environment for CLI testing
func NewCLITestFixture(t *testing.T) *CLITestFixture {
	t.Helper()
	return &CLITestFixture{
		t:       t,
		tempDir: t.TempDir(),
		out:     &bytes.Buffer{},
	}
}

// RunCLI executes a command on a fresh manager and returns its output
func (f *CLITestFixture) RunCLI(args ...string) (string, error) {
	f.t.Helper()
	f.out.Reset()

	manager := NewManager().SetOutput(f.out)
	if f.auditLogger != nil {
		manager.WithAudit(f.auditLogger)
	}
	err := manager.Run(args)
	return strings.TrimSpace(f.out.String()), err
}

// CreateTempConfig creates a settings file in the temp directory
func (f *CLITestFixture) CreateTempConfig(name, content string) string {
	f.t.Helper()
	path := filepath.Join(f.tempDir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		f.t.Fatalf("Failed to create config file: %v", err)
	}
	return path
}

func (f *CLITestFixture) readFile(path string) string {
	f.t.Helper()
	// #nosec G304 -- test file in temp dir
	data, err := os.ReadFile(path)
	if err != nil {
		f.t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func expectErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error %s, got nil", code)
	}
	if !strings.Contains(err.Error(), code) {
		t.Errorf("Expected error %s, got: %v", code, err)
	}
}

const sampleSettings = `server:
  host: localhost
  port: 8080
  timeout: 30s
features: [auth, metrics]
debug: false
`

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil || manager.app == nil {
		t.Fatal("NewManager() returned an uninitialized manager")
	}
	if manager.auditLogger != nil {
		t.Error("Manager.auditLogger should be nil by default")
	}
	if manager.out != os.Stdout {
		t.Error("Manager should write to stdout by default")
	}
}

func TestCLI_ConfigGet(t *testing.T) {
	fixture := NewCLITestFixture(t)
	file := fixture.CreateTempConfig("settings.yml", sampleSettings)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"scalar", []string{"config", "get", file, "server.host"}, "localhost"},
		{"typed int", []string{"config", "get", file, "server.port", "--type", "int"}, "8080"},
		{"typed duration", []string{"config", "get", file, "server.timeout", "--type", "duration"}, "30s"},
		{"list element", []string{"config", "get", file, "features[1]"}, "metrics"},
		{"list", []string{"config", "get", file, "features", "--type", "list"}, "[auth, metrics]"},
		{"section", []string{"config", "get", file, "server"}, "host: localhost\nport: 8080\ntimeout: 30s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := fixture.RunCLI(tt.args...)
			if err != nil {
				t.Fatalf("config get failed: %v", err)
			}
			if output != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, output)
			}
		})
	}
}

func TestCLI_ConfigGetErrors(t *testing.T) {
	fixture := NewCLITestFixture(t)
	file := fixture.CreateTempConfig("settings.yml", sampleSettings)

	_, err := fixture.RunCLI("config", "get", file, "server.host", "--type", "int")
	expectErrorCode(t, err, eidos.ErrCodeConversionFailed)

	_, err = fixture.RunCLI("config", "get", file, "server.missing")
	expectErrorCode(t, err, eidos.ErrCodeInvalidPath)

	_, err = fixture.RunCLI("config", "get", file, "server.port", "--type", "complex")
	expectErrorCode(t, err, eidos.ErrCodeUnsupportedType)

	_, err = fixture.RunCLI("config", "get", filepath.Join(fixture.tempDir, "missing.yml"), "a")
	expectErrorCode(t, err, eidos.ErrCodeIOError)

	if _, err := fixture.RunCLI("config", "get", file); err == nil {
		t.Error("Expected usage error for missing path argument")
	}
}

func TestCLI_ConfigSet(t *testing.T) {
	fixture := NewCLITestFixture(t)
	file := fixture.CreateTempConfig("settings.yml", sampleSettings)

	output, err := fixture.RunCLI("config", "set", file, "server.port", "9090")
	if err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if output != "Set server.port = 9090 in "+file {
		t.Errorf("Unexpected output: %q", output)
	}

	if _, err := fixture.RunCLI("config", "set", file, "cache.enabled", "true"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	doc, err := eidos.LoadDocument(file)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if v, _ := doc.Value("server.port"); v != 9090 {
		t.Errorf("Expected port 9090, got %v (%T)", v, v)
	}
	if v, _ := doc.Value("cache.enabled"); v != true {
		t.Errorf("Expected cache.enabled=true, got %v", v)
	}

	// Existing keys keep their position, new ones are appended
	want := []string{"server.host", "server.port", "server.timeout", "features[0]", "features[1]", "debug", "cache.enabled"}
	if got := doc.Keys(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected keys %v, got %v", want, got)
	}
}

func TestCLI_ConfigSetCreatesFile(t *testing.T) {
	fixture := NewCLITestFixture(t)
	file := filepath.Join(fixture.tempDir, "nested", "new.yml")

	if _, err := fixture.RunCLI("config", "set", file, "app.name", "orders"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if content := fixture.readFile(file); content != "app:\n  name: orders\n" {
		t.Errorf("Unexpected content:\n%s", content)
	}
}

func TestCLI_ConfigDelete(t *testing.T) {
	fixture := NewCLITestFixture(t)
	file := fixture.CreateTempConfig("settings.yml", sampleSettings)

	output, err := fixture.RunCLI("config", "delete", file, "server.timeout")
	if err != nil {
		t.Fatalf("config delete failed: %v", err)
	}
	if !strings.HasPrefix(output, "Deleted server.timeout") {
		t.Errorf("Unexpected output: %q", output)
	}
	if strings.Contains(fixture.readFile(file), "timeout") {
		t.Error("timeout should be removed from the file")
	}

	_, err = fixture.RunCLI("config", "delete", file, "server.timeout")
	expectErrorCode(t, err, eidos.ErrCodeInvalidPath)
}

func TestCLI_ConfigKeys(t *testing.T) {
	fixture := NewCLITestFixture(t)
	file := fixture.CreateTempConfig("settings.yml", sampleSettings)

	output, err := fixture.RunCLI("config", "keys", file, "--prefix", "server.")
	if err != nil {
		t.Fatalf("config keys failed: %v", err)
	}
	want := "server.host = localhost\nserver.port = 8080\nserver.timeout = 30s"
	if output != want {
		t.Errorf("Expected:\n%s\ngot:\n%s", want, output)
	}

	output, err = fixture.RunCLI("config", "keys", file, "--prefix", "nothing")
	if err != nil {
		t.Fatalf("config keys failed: %v", err)
	}
	if output != "No keys found" {
		t.Errorf("Unexpected output: %q", output)
	}
}

func TestCLI_ConfigCheck(t *testing.T) {
	fixture := NewCLITestFixture(t)
	valid := fixture.CreateTempConfig("valid.yml", sampleSettings)
	invalid := fixture.CreateTempConfig("invalid.yml", "- just\n- a list\n")

	output, err := fixture.RunCLI("config", "check", valid)
	if err != nil {
		t.Fatalf("config check failed: %v", err)
	}
	for _, want := range []string{"Valid settings file", "sections: 3", "values:   6", "hash:"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output:\n%s", want, output)
		}
	}

	output, err = fixture.RunCLI("config", "check", invalid)
	expectErrorCode(t, err, eidos.ErrCodeDocumentParse)
	if !strings.HasPrefix(output, "Invalid settings file") {
		t.Errorf("Unexpected output: %q", output)
	}
}

func TestCLI_ConfigNormalize(t *testing.T) {
	fixture := NewCLITestFixture(t)
	file := fixture.CreateTempConfig("messy.yml", "base: &b\n    x: 1\nderived:\n    <<: *b\n    y: 2\nlist: [1,   2]\n")
	target := filepath.Join(fixture.tempDir, "clean.yml")

	output, err := fixture.RunCLI("config", "normalize", file, "--output", target)
	if err != nil {
		t.Fatalf("config normalize failed: %v", err)
	}
	if output != "Normalized "+file+" -> "+target {
		t.Errorf("Unexpected output: %q", output)
	}

	content := fixture.readFile(target)
	if !strings.HasPrefix(content, "base:\n  x: 1\nderived:\n  x: 1\n  y: 2\n") {
		t.Errorf("Unexpected normalized content:\n%s", content)
	}
	if strings.Contains(content, "*b") || strings.Contains(content, "<<") {
		t.Error("Anchors and merge keys should be resolved")
	}
}

func TestCLI_AuditedWrites(t *testing.T) {
	fixture := NewCLITestFixture(t)
	auditPath := filepath.Join(fixture.tempDir, "audit.jsonl")

	config := eidos.DefaultAuditConfig()
	config.OutputFile = auditPath
	config.FlushInterval = 0
	auditLogger, err := eidos.NewAuditLogger(config)
	if err != nil {
		t.Fatalf("Failed to create audit logger: %v", err)
	}
	fixture.auditLogger = auditLogger

	file := fixture.CreateTempConfig("settings.yml", sampleSettings)
	if _, err := fixture.RunCLI("config", "set", file, "debug", "true"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if _, err := fixture.RunCLI("config", "get", file, "debug"); err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if err := auditLogger.Close(); err != nil {
		t.Fatalf("Failed to close audit logger: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(fixture.readFile(auditPath)), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], eidos.EventSettingsSaved) {
		t.Errorf("Expected one save event, got %v", lines)
	}
}
