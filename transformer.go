// transformer.go: Scalar transformer chain
//
// A transformer is a narrow conversion attempt: it either produces a value of
// exactly the target type or reports that it does not apply. The chain tries
// transformers in order and the first match wins, so callers can put their own
// conversions ahead of (or instead of) the defaults.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// Transformer attempts to convert a raw store value into the target type.
// Implementations return (nil, false) when they do not apply; they never panic.
type Transformer interface {
	Transform(target reflect.Type, raw any) (any, bool)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(target reflect.Type, raw any) (any, bool)

// Transform implements Transformer.
func (f TransformerFunc) Transform(target reflect.Type, raw any) (any, bool) {
	return f(target, raw)
}

// Default transformers, in default chain order.
var (
	// IdentityTransformer returns raw unchanged when it already has the target
	// type, and converts bool literals to named bool targets.
	IdentityTransformer Transformer = TransformerFunc(transformIdentity)

	// NumberTransformer converts between numeric kinds with Go conversion
	// semantics (silent truncation, no range checks) and parses decimal strings.
	NumberTransformer Transformer = TransformerFunc(transformNumber)

	// StringTransformer stringifies any scalar for string targets. String
	// kinds implementing encoding.TextUnmarshaler are left to TextTransformer.
	StringTransformer Transformer = TransformerFunc(transformString)

	// EnumTransformer matches strings case-insensitively against registered enum constants.
	EnumTransformer Transformer = TransformerFunc(transformEnum)

	// DurationTransformer parses time.Duration strings such as "1m30s".
	DurationTransformer Transformer = TransformerFunc(transformDuration)

	// BoolTransformer parses true/false, yes/no, on/off and 1/0 strings.
	BoolTransformer Transformer = TransformerFunc(transformBool)

	// TextTransformer feeds strings to types implementing encoding.TextUnmarshaler.
	TextTransformer Transformer = TransformerFunc(transformText)
)

// Chain is an ordered, immutable list of transformers.
type Chain struct {
	transformers []Transformer
}

// NewChain creates a chain trying transformers in the given order.
func NewChain(transformers ...Transformer) *Chain {
	ts := make([]Transformer, 0, len(transformers))
	for _, t := range transformers {
		if t != nil {
			ts = append(ts, t)
		}
	}
	return &Chain{transformers: ts}
}

// DefaultChain returns the standard chain: identity, number, string, enum,
// then duration, bool and text parsing.
func DefaultChain() *Chain {
	return NewChain(
		IdentityTransformer,
		NumberTransformer,
		StringTransformer,
		EnumTransformer,
		DurationTransformer,
		BoolTransformer,
		TextTransformer,
	)
}

// Prepend returns a new chain trying transformers before the existing ones.
func (c *Chain) Prepend(transformers ...Transformer) *Chain {
	ts := make([]Transformer, 0, len(c.transformers)+len(transformers))
	ts = append(ts, transformers...)
	return NewChain(append(ts, c.transformers...)...)
}

// Append returns a new chain trying transformers after the existing ones.
func (c *Chain) Append(transformers ...Transformer) *Chain {
	ts := make([]Transformer, 0, len(c.transformers)+len(transformers))
	ts = append(ts, c.transformers...)
	return NewChain(append(ts, transformers...)...)
}

// Len returns the number of transformers in the chain.
func (c *Chain) Len() int {
	return len(c.transformers)
}

// Convert runs the chain. The returned value always has exactly the target type.
func (c *Chain) Convert(target reflect.Type, raw any) (any, bool) {
	if raw == nil || target == nil {
		return nil, false
	}
	for _, t := range c.transformers {
		v, ok := t.Transform(target, raw)
		if !ok || v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Type() == target {
			return v, true
		}
		// Named and unnamed variants of one kind only
		if rv.Kind() == target.Kind() && rv.Type().ConvertibleTo(target) {
			return rv.Convert(target).Interface(), true
		}
	}
	return nil, false
}

func transformIdentity(target reflect.Type, raw any) (any, bool) {
	rv := reflect.ValueOf(raw)
	if rv.Type() == target {
		return raw, true
	}
	if rv.Kind() == reflect.Bool && target.Kind() == reflect.Bool {
		return rv.Convert(target).Interface(), true
	}
	return nil, false
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumericKind(k reflect.Kind) bool {
	return isIntKind(k) || isUintKind(k) || isFloatKind(k)
}

func transformNumber(target reflect.Type, raw any) (any, bool) {
	if !isNumericKind(target.Kind()) || IsEnum(target) {
		return nil, false
	}

	rv := reflect.ValueOf(raw)
	if isNumericKind(rv.Kind()) {
		return rv.Convert(target).Interface(), true
	}

	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	s = strings.TrimSpace(s)

	switch k := target.Kind(); {
	case isIntKind(k):
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		return reflect.ValueOf(n).Convert(target).Interface(), true
	case isUintKind(k):
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, false
		}
		return reflect.ValueOf(n).Convert(target).Interface(), true
	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		return reflect.ValueOf(f).Convert(target).Interface(), true
	}
}

func transformString(target reflect.Type, raw any) (any, bool) {
	if target.Kind() != reflect.String || IsEnum(target) {
		return nil, false
	}
	if _, isText := raw.(string); isText && reflect.PointerTo(target).Implements(textUnmarshalerType) {
		return nil, false
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case bool:
		s = strconv.FormatBool(v)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		s = v.String()
	default:
		rv := reflect.ValueOf(raw)
		switch {
		case isIntKind(rv.Kind()):
			s = strconv.FormatInt(rv.Int(), 10)
		case isUintKind(rv.Kind()):
			s = strconv.FormatUint(rv.Uint(), 10)
		case rv.Kind() == reflect.String:
			s = rv.String()
		default:
			s = fmt.Sprintf("%v", raw)
		}
	}
	return reflect.ValueOf(s).Convert(target).Interface(), true
}

func transformEnum(target reflect.Type, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	v, ok := enumByName(target, s)
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

func transformDuration(target reflect.Type, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok || target != durationType {
		return nil, false
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	return d, true
}

func transformBool(target reflect.Type, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok || target.Kind() != reflect.Bool {
		return nil, false
	}

	var b bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		b = true
	case "false", "no", "off", "0":
		b = false
	default:
		return nil, false
	}
	return reflect.ValueOf(b).Convert(target).Interface(), true
}

func transformText(target reflect.Type, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok || !reflect.PointerTo(target).Implements(textUnmarshalerType) {
		return nil, false
	}
	ptr := reflect.New(target)
	if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
		return nil, false
	}
	return ptr.Elem().Interface(), true
}
