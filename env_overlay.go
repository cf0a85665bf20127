// env_overlay.go: Environment variable overrides over a property store
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"os"
	"reflect"
	"strings"
)

// EnvOverlay is a Reader that serves environment variables ahead of a base
// Reader. Values are strings and go through the transformer chain like any
// other store value; a list property reads a comma separated value.
//
//	overlay := eidos.NewEnvOverlay(doc, "APP").BindPaths("server.port", "tags")
//	// APP_SERVER_PORT=9000 APP_TAGS=a,b
//
// Unset variables are ignored. A variable set to the empty string counts.
type EnvOverlay struct {
	layer
	prefix   string
	bindings map[string]string // property path -> variable name
	lookup   func(string) (string, bool)
}

// NewEnvOverlay layers the environment over base. prefix is prepended to
// derived variable names; it may be empty.
func NewEnvOverlay(base Reader, prefix string) *EnvOverlay {
	o := &EnvOverlay{
		prefix:   prefix,
		bindings: make(map[string]string),
		lookup:   os.LookupEnv,
	}
	o.layer = layer{base: base, overrides: o.Overrides, splitStrings: true}
	return o
}

// Bind maps a variable to a property path.
func (o *EnvOverlay) Bind(variable, path string) *EnvOverlay {
	o.bindings[path] = variable
	return o
}

// BindPaths binds each path to the variable named by EnvName.
func (o *EnvOverlay) BindPaths(paths ...string) *EnvOverlay {
	for _, path := range paths {
		o.bindings[path] = EnvName(o.prefix, path)
	}
	return o
}

// Overrides returns the set variables keyed by property path.
func (o *EnvOverlay) Overrides() map[string]any {
	out := make(map[string]any)
	for path, variable := range o.bindings {
		if value, ok := o.lookup(variable); ok {
			out[path] = value
		}
	}
	return out
}

// EnvName derives the variable name of a property path: upper case, with
// separators and indexes turned into underscores.
//
//	EnvName("APP", "server.max-conns")  // APP_SERVER_MAX_CONNS
//	EnvName("", "replicas[0].host")     // REPLICAS_0_HOST
func EnvName(prefix, path string) string {
	name := strings.NewReplacer(".", "_", "-", "_", "[", "_", "]", "").Replace(path)
	name = strings.ToUpper(name)
	if prefix == "" {
		return name
	}
	return strings.ToUpper(strings.TrimSuffix(prefix, "_")) + "_" + name
}

// envPaths lists the paths of defs plus, for bean definitions, the paths of
// every nested bean field, so "APP_SERVER_PORT" reaches a bean at "server".
func envPaths(defs []Definition) []string {
	paths := make([]string, 0, len(defs))
	for _, def := range defs {
		paths = append(paths, def.Path())
		paths = appendFieldPaths(paths, def.Path(), reflect.TypeOf(def.defaultValue()))
	}
	return paths
}

func appendFieldPaths(paths []string, parent string, t reflect.Type) []string {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct || t.Implements(textUnmarshalerType) ||
		reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return paths
	}
	fields, err := BeanFields(t)
	if err != nil {
		return paths
	}
	for _, f := range fields {
		path := JoinPath(parent, f.ExportName)
		paths = append(paths, path)
		paths = appendFieldPaths(paths, path, f.Type)
	}
	return paths
}
