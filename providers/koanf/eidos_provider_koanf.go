// Package koanfprovider exposes a koanf configuration tree as an eidos.Reader, so
// beans and properties can be mapped from anything koanf can load.
//
// USAGE:
//
//	k := koanf.New(".")
//	_ = k.Load(file.Provider("config.yml"), yaml.Parser())
//
//	r := koanfprovider.New(k)
//	server, rec, err := eidos.MapInto[Server](r, "server")
//
// Paths use the eidos syntax ("servers[1].host"); the key part is resolved
// by koanf and list indices are resolved on the returned value.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package koanfprovider

import (
	"fmt"
	"strings"

	"github.com/agilira/eidos"
	"github.com/agilira/go-errors"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format names accepted by FromBytes.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Reader implements eidos.Reader over a *koanf.Koanf.
type Reader struct {
	k *koanf.Koanf
}

var _ eidos.Reader = (*Reader)(nil)

// New wraps k. The instance must use "." as key delimiter.
func New(k *koanf.Koanf) *Reader {
	return &Reader{k: k}
}

// FromBytes parses YAML or JSON bytes into a new koanf instance.
func FromBytes(data []byte, format string) (*Reader, error) {
	k := koanf.New(".")
	if len(data) == 0 {
		return New(k), nil
	}

	var parser koanf.Parser
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, errors.New(eidos.ErrCodeDocumentParse, fmt.Sprintf("unsupported format '%s'", format))
	}

	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, errors.Wrap(err, eidos.ErrCodeDocumentParse, "failed to load configuration").
			WithContext("format", format)
	}
	return New(k), nil
}

// Koanf returns the underlying instance.
func (r *Reader) Koanf() *koanf.Koanf {
	return r.k
}

// node resolves path: the key part through koanf, indices on the result
func (r *Reader) node(path string) (any, bool) {
	if path == "" {
		return r.k.Raw(), true
	}

	key, rest := path, ""
	if i := strings.IndexByte(path, '['); i >= 0 {
		key, rest = path[:i], path[i:]
	}
	if key == "" || !r.k.Exists(key) {
		return nil, false
	}
	v := r.k.Get(key)
	if v == nil {
		return nil, false
	}
	if rest == "" {
		return v, true
	}

	// "v" is a synthetic root so the remainder can be walked with eidos paths.
	return eidos.ValueAt(map[string]any{"v": v}, "v"+rest)
}

// Contains implements eidos.Reader.
func (r *Reader) Contains(path string) bool {
	_, ok := r.node(path)
	return ok
}

// Scalar implements eidos.Reader.
func (r *Reader) Scalar(path string) (any, bool) {
	v, ok := r.node(path)
	if !ok {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return nil, false
	}
	return v, true
}

// List implements eidos.Reader.
func (r *Reader) List(path string) ([]any, bool) {
	v, ok := r.node(path)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok
}

// Mapping implements eidos.Reader.
func (r *Reader) Mapping(path string) (map[string]any, bool) {
	v, ok := r.node(path)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}
