// store.go: Property store boundary and path addressing
//
// The mapper never owns the store: it asks a Reader typed path questions and,
// when exporting, hands untyped values to a Writer. Paths are dotted keys with
// optional list indices, e.g. "servers[1].host".
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agilira/go-errors"
)

// Reader answers typed path queries against an untyped property tree.
type Reader interface {
	// Contains reports whether a non-null node exists at path.
	Contains(path string) bool

	// Scalar returns the scalar (string, bool, number) stored at path.
	Scalar(path string) (any, bool)

	// List returns the sequence stored at path.
	List(path string) ([]any, bool)

	// Mapping returns the string-keyed mapping stored at path.
	Mapping(path string) (map[string]any, bool)
}

// Writer stages exported values for persistence.
type Writer interface {
	// Set stores an exported value (scalar, []any, map[string]any or Section) at path.
	Set(path string, value any) error
}

// Entry is a single key/value pair of a Section.
type Entry struct {
	Key   string
	Value any
}

// Section is an ordered mapping node. Beans export to a Section so that field
// declaration order survives serialization.
type Section []Entry

// Get returns the value stored under key.
func (s Section) Get(key string) (any, bool) {
	for i := range s {
		if s[i].Key == key {
			return s[i].Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key or appends a new entry.
func (s *Section) Set(key string, value any) {
	for i := range *s {
		if (*s)[i].Key == key {
			(*s)[i].Value = value
			return
		}
	}
	*s = append(*s, Entry{Key: key, Value: value})
}

// Delete removes key, reporting whether it was present.
func (s *Section) Delete(key string) bool {
	for i := range *s {
		if (*s)[i].Key == key {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

// Keys returns the keys in insertion order.
func (s Section) Keys() []string {
	keys := make([]string, len(s))
	for i := range s {
		keys[i] = s[i].Key
	}
	return keys
}

// ToMap returns a shallow, unordered view of the section.
func (s Section) ToMap() map[string]any {
	m := make(map[string]any, len(s))
	for _, e := range s {
		m[e.Key] = e.Value
	}
	return m
}

// JoinPath appends a key to a parent path.
func JoinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// IndexPath addresses element i of the sequence at path.
func IndexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// segment is one step of a parsed path: a mapping key or a sequence index
type segment struct {
	key   string
	index int // -1 for key segments
}

// splitPath parses "a.b[2].c" into segments. The empty path addresses the root.
func splitPath(path string) ([]segment, error) {
	if path == "" {
		return nil, nil
	}

	segs := make([]segment, 0, strings.Count(path, ".")+1)
	for _, part := range strings.Split(path, ".") {
		open := strings.IndexByte(part, '[')
		key := part
		if open >= 0 {
			key = part[:open]
		}
		if key == "" {
			return nil, errors.New(ErrCodeInvalidPath, fmt.Sprintf("empty key in path '%s'", path))
		}
		segs = append(segs, segment{key: key, index: -1})

		rest := ""
		if open >= 0 {
			rest = part[open:]
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, errors.New(ErrCodeInvalidPath, fmt.Sprintf("malformed index in path '%s'", path))
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil || idx < 0 {
				return nil, errors.New(ErrCodeInvalidPath, fmt.Sprintf("invalid index '%s' in path '%s'", rest[1:end], path))
			}
			segs = append(segs, segment{index: idx})
			rest = rest[end+1:]
		}
	}
	return segs, nil
}

// nodeAt walks an untyped tree. Null nodes count as missing.
func nodeAt(root any, path string) (any, bool) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, false
	}

	current := root
	for _, seg := range segs {
		if seg.index >= 0 {
			list, ok := current.([]any)
			if !ok || seg.index >= len(list) {
				return nil, false
			}
			current = list[seg.index]
			continue
		}

		var (
			next  any
			found bool
		)
		switch node := current.(type) {
		case Section:
			next, found = node.Get(seg.key)
		case map[string]any:
			next, found = node[seg.key]
		}
		if !found {
			return nil, false
		}
		current = next
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

// isContainer reports whether node is a sequence or mapping
func isContainer(node any) bool {
	switch node.(type) {
	case Section, map[string]any, []any:
		return true
	default:
		return false
	}
}

// treeReader implements Reader over an in-memory tree of Sections, maps and slices
type treeReader struct {
	root any
}

func (t treeReader) Contains(path string) bool {
	_, ok := nodeAt(t.root, path)
	return ok
}

func (t treeReader) Scalar(path string) (any, bool) {
	node, ok := nodeAt(t.root, path)
	if !ok || isContainer(node) {
		return nil, false
	}
	return node, true
}

func (t treeReader) List(path string) ([]any, bool) {
	node, ok := nodeAt(t.root, path)
	if !ok {
		return nil, false
	}
	list, ok := node.([]any)
	return list, ok
}

func (t treeReader) Mapping(path string) (map[string]any, bool) {
	node, ok := nodeAt(t.root, path)
	if !ok {
		return nil, false
	}
	switch m := node.(type) {
	case Section:
		return m.ToMap(), true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

// NewMapReader exposes a parsed configuration map (as produced by JSON or YAML
// decoders) as a Reader.
func NewMapReader(config map[string]any) Reader {
	if config == nil {
		config = map[string]any{}
	}
	return treeReader{root: config}
}

// normalizeNode converts exported values into the document representation:
// string-keyed maps become Sections with sorted keys, nested values recursively.
func normalizeNode(value any) any {
	switch v := value.(type) {
	case Section:
		out := make(Section, len(v))
		for i, e := range v {
			out[i] = Entry{Key: e.Key, Value: normalizeNode(e.Value)}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Section, 0, len(v))
		for _, k := range keys {
			out = append(out, Entry{Key: k, Value: normalizeNode(v[k])})
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = normalizeNode(v[i])
		}
		return out
	default:
		return value
	}
}

// ValueAt walks an untyped tree (Sections, string-keyed maps and []any) and
// returns the non-null node at path. It lets other Reader implementations
// share the path syntax.
func ValueAt(root any, path string) (any, bool) {
	return nodeAt(root, path)
}

// SplitPath returns the segments of path: keys as strings, indices as ints.
func SplitPath(path string) ([]any, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(segs))
	for i, s := range segs {
		if s.index >= 0 {
			out[i] = s.index
		} else {
			out[i] = s.key
		}
	}
	return out, nil
}
