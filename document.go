// document.go: YAML-backed property store
//
// A Document keeps the parsed YAML tree with mapping order intact, answers
// Reader queries and accepts exported values through Set. Serialization goes
// through yaml.Node so that Sections are written in declaration order.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"bytes"
	"fmt"
	"os"

	"github.com/agilira/go-errors"
	"github.com/cespare/xxhash/v2"
	"go.yaml.in/yaml/v3"
)

// Document is an in-memory YAML property tree. It implements Reader and Writer.
//
// Thread safety: none. Documents follow the load-then-use model.
type Document struct {
	root Section
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{root: Section{}}
}

// ParseDocument parses YAML bytes. The top-level node must be a mapping;
// empty input yields an empty document.
func ParseDocument(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, errors.Wrap(err, ErrCodeDocumentParse, "invalid YAML document")
	}

	doc := NewDocument()
	top := &node
	if top.Kind == yaml.DocumentNode {
		if len(top.Content) == 0 {
			return doc, nil
		}
		top = top.Content[0]
	}
	if top.Kind == 0 || (top.Kind == yaml.ScalarNode && top.Tag == "!!null") {
		return doc, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, errors.New(ErrCodeDocumentParse, "document root must be a mapping").
			WithContext("line", top.Line)
	}

	value, err := fromYAMLNode(top)
	if err != nil {
		return nil, err
	}
	doc.root = value.(Section)
	return doc, nil
}

// LoadDocument reads and parses a YAML file.
func LoadDocument(path string) (*Document, error) {
	// #nosec G304 -- caller-controlled configuration path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to read document").
			WithContext("path", path)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeDocumentParse, "failed to parse document").
			WithContext("path", path)
	}
	return doc, nil
}

// fromYAMLNode converts a yaml.Node into Sections, []any and scalars
func fromYAMLNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAMLNode(n.Content[0])

	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)

	case yaml.MappingNode:
		section := make(Section, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return nil, errors.New(ErrCodeDocumentParse, "mapping keys must be scalars").
					WithContext("line", key.Line)
			}
			value, err := fromYAMLNode(val)
			if err != nil {
				return nil, err
			}
			// "<<: *base" merges the aliased mapping without overriding explicit keys
			if key.Tag == "!!merge" {
				if base, ok := value.(Section); ok {
					for _, e := range base {
						if _, exists := section.Get(e.Key); !exists {
							section = append(section, e)
						}
					}
					continue
				}
			}
			section.Set(key.Value, value)
		}
		return section, nil

	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			value, err := fromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil

	case yaml.ScalarNode:
		var value any
		if err := n.Decode(&value); err != nil {
			return nil, errors.Wrap(err, ErrCodeDocumentParse, "invalid scalar").
				WithContext("line", n.Line)
		}
		return value, nil
	}

	return nil, errors.New(ErrCodeDocumentParse, fmt.Sprintf("unsupported YAML node kind %d", n.Kind))
}

// toYAMLNode converts an exported value into a yaml.Node, keeping Section order
func toYAMLNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case Section:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range v {
			child, err := toYAMLNode(e.Value)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
				child)
		}
		return node, nil

	case map[string]any:
		return toYAMLNode(normalizeNode(v))

	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			child, err := toYAMLNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil

	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, errors.Wrap(err, ErrCodeDocumentWrite, fmt.Sprintf("cannot encode %T", v))
		}
		return node, nil
	}
}

// Marshal serializes the document as YAML with two-space indentation.
func (d *Document) Marshal() ([]byte, error) {
	node, err := toYAMLNode(d.root)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, errors.Wrap(err, ErrCodeDocumentWrite, "YAML encoding failed")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, ErrCodeDocumentWrite, "YAML encoding failed")
	}
	return buf.Bytes(), nil
}

// Hash returns a content hash of the serialized document for dirty detection.
func (d *Document) Hash() uint64 {
	data, err := d.Marshal()
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}

// Contains implements Reader.
func (d *Document) Contains(path string) bool { return treeReader{root: d.root}.Contains(path) }

// Scalar implements Reader.
func (d *Document) Scalar(path string) (any, bool) { return treeReader{root: d.root}.Scalar(path) }

// List implements Reader.
func (d *Document) List(path string) ([]any, bool) { return treeReader{root: d.root}.List(path) }

// Mapping implements Reader.
func (d *Document) Mapping(path string) (map[string]any, bool) {
	return treeReader{root: d.root}.Mapping(path)
}

// Set implements Writer. Missing intermediate mappings are created; a list index
// may address an existing element or append at len(list).
func (d *Document) Set(path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	value = normalizeNode(value)
	if len(segs) == 0 {
		section, ok := value.(Section)
		if !ok {
			return errors.New(ErrCodeInvalidPath, fmt.Sprintf("document root must be a mapping, got %T", value))
		}
		d.root = section
		return nil
	}

	updated, err := setIn(d.root, segs, value, path)
	if err != nil {
		return err
	}
	d.root = updated.(Section)
	return nil
}

func setIn(node any, segs []segment, value any, path string) (any, error) {
	if len(segs) == 0 {
		return value, nil
	}

	seg := segs[0]
	if seg.index >= 0 {
		list, _ := node.([]any)
		if seg.index > len(list) {
			return nil, errors.New(ErrCodeInvalidPath, fmt.Sprintf("index %d out of range in '%s'", seg.index, path)).
				WithContext("length", len(list))
		}
		var child any
		if seg.index < len(list) {
			child = list[seg.index]
		}
		updated, err := setIn(child, segs[1:], value, path)
		if err != nil {
			return nil, err
		}
		if seg.index == len(list) {
			return append(list, updated), nil
		}
		list[seg.index] = updated
		return list, nil
	}

	section, _ := node.(Section)
	child, _ := section.Get(seg.key)
	updated, err := setIn(child, segs[1:], value, path)
	if err != nil {
		return nil, err
	}
	section.Set(seg.key, updated)
	return section, nil
}

// Delete removes the node at path, reporting whether it existed.
func (d *Document) Delete(path string) bool {
	segs, err := splitPath(path)
	if err != nil || len(segs) == 0 {
		return false
	}
	updated, ok := deleteIn(d.root, segs)
	if ok {
		d.root = updated.(Section)
	}
	return ok
}

func deleteIn(node any, segs []segment) (any, bool) {
	seg := segs[0]
	last := len(segs) == 1

	if seg.index >= 0 {
		list, ok := node.([]any)
		if !ok || seg.index >= len(list) {
			return node, false
		}
		if last {
			return append(list[:seg.index], list[seg.index+1:]...), true
		}
		updated, ok := deleteIn(list[seg.index], segs[1:])
		if ok {
			list[seg.index] = updated
		}
		return list, ok
	}

	section, ok := node.(Section)
	if !ok {
		return node, false
	}
	if last {
		deleted := section.Delete(seg.key)
		return section, deleted
	}
	child, found := section.Get(seg.key)
	if !found {
		return node, false
	}
	updated, ok := deleteIn(child, segs[1:])
	if ok {
		section.Set(seg.key, updated)
	}
	return section, ok
}

// Keys lists the paths of all scalar leaves in document order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, 16)
	var walk func(prefix string, node any)
	walk = func(prefix string, node any) {
		switch v := node.(type) {
		case Section:
			for _, e := range v {
				walk(JoinPath(prefix, e.Key), e.Value)
			}
		case []any:
			for i, item := range v {
				walk(IndexPath(prefix, i), item)
			}
		default:
			keys = append(keys, prefix)
		}
	}
	walk("", d.root)
	return keys
}

// Value returns the raw node at path (scalar, []any or Section).
func (d *Document) Value(path string) (any, bool) {
	return nodeAt(d.root, path)
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	return len(d.root)
}

// WriteFile serializes the document and replaces path atomically.
func (d *Document) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}
