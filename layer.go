// layer.go: Readers that override paths of a base Reader
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import "strings"

// layer serves the values returned by overrides ahead of base. Overrides are
// keyed by property path; an override below a path makes the path present.
type layer struct {
	base      Reader
	overrides func() map[string]any

	// splitStrings lets a string override answer List as a comma separated list
	splitStrings bool
}

// splitList splits "a, b,c" into trimmed elements. An empty string is an empty list.
func splitList(s string) []any {
	if strings.TrimSpace(s) == "" {
		return []any{}
	}
	parts := strings.Split(s, ",")
	list := make([]any, len(parts))
	for i, p := range parts {
		list[i] = strings.TrimSpace(p)
	}
	return list
}

// childOf returns the remainder of key below path
func childOf(path, key string) (string, bool) {
	if path == "" {
		return key, key != ""
	}
	if !strings.HasPrefix(key, path) {
		return "", false
	}
	rest := key[len(path):]
	switch {
	case strings.HasPrefix(rest, "."):
		return rest[1:], true
	case strings.HasPrefix(rest, "["):
		return rest, true
	default:
		return "", false
	}
}

// Contains implements Reader.
func (o layer) Contains(path string) bool {
	for key := range o.overrides() {
		if key == path {
			return true
		}
		if _, below := childOf(path, key); below {
			return true
		}
	}
	return o.base.Contains(path)
}

// Scalar implements Reader.
func (o layer) Scalar(path string) (any, bool) {
	if v, ok := o.overrides()[path]; ok && !isContainer(v) {
		return v, true
	}
	return o.base.Scalar(path)
}

// List implements Reader.
func (o layer) List(path string) ([]any, bool) {
	if v, ok := o.overrides()[path]; ok {
		switch v := v.(type) {
		case []any:
			return v, true
		case string:
			if o.splitStrings {
				return splitList(v), true
			}
		}
	}
	return o.base.List(path)
}

// Mapping implements Reader. Overrides below path are merged into the base
// mapping so that beans and maps see the overridden children.
func (o layer) Mapping(path string) (map[string]any, bool) {
	base, ok := o.base.Mapping(path)

	merged := make(map[string]any, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for key, v := range o.overrides() {
		rest, below := childOf(path, key)
		if !below || strings.HasPrefix(rest, "[") {
			continue
		}
		ok = true
		first := rest
		if i := strings.IndexAny(rest, ".["); i >= 0 {
			first = rest[:i]
			if _, exists := merged[first]; !exists {
				merged[first] = map[string]any{}
			}
			continue
		}
		merged[first] = v
	}

	if !ok {
		return nil, false
	}
	return merged, true
}
