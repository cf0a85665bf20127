// property.go: Typed property facade
//
// A Property combines a store path, a PropertyType and a default value.
// Reading never fails because data is missing: an absent or unconvertible
// value falls back to the default, and only structural problems surface as
// errors.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"time"
)

// Property is a typed configuration entry at a fixed path.
type Property[T any] struct {
	path     string
	typ      PropertyType[T]
	def      T
	constant bool
}

// NewProperty creates a property reading typ at path with the given default.
func NewProperty[T any](path string, typ PropertyType[T], def T) *Property[T] {
	return &Property[T]{path: path, typ: typ, def: def}
}

// ConstantProperty always resolves to value, whatever the store contains.
// It reports itself present and exports value on save.
func ConstantProperty[T any](path string, value T) *Property[T] {
	return &Property[T]{path: path, typ: Scalar[T](), def: value, constant: true}
}

// Path returns the store path of the property.
func (p *Property[T]) Path() string { return p.path }

// Default returns the default value.
func (p *Property[T]) Default() T { return p.def }

// Type returns the property type.
func (p *Property[T]) Type() PropertyType[T] { return p.typ }

// IsConstant reports whether the property ignores the store.
func (p *Property[T]) IsConstant() bool { return p.constant }

// IsPresent reports whether a value of the property's shape exists in r.
func (p *Property[T]) IsPresent(r Reader) bool {
	if p.constant {
		return true
	}
	return p.typ.IsPresent(r, p.path)
}

// Value reads the property from r. Missing and unconvertible data yield the
// default; conversion failures are recorded on rec (which may be nil).
func (p *Property[T]) Value(r Reader, rec *ErrorRecorder) (T, error) {
	if p.constant {
		return p.def, nil
	}
	if rec == nil {
		rec = NewErrorRecorder()
	}
	v, ok, err := p.typ.Read(r, p.path, rec)
	if err != nil {
		return p.def, err
	}
	if !ok {
		return p.def, nil
	}
	return v, nil
}

// ExportValue converts v into its store form.
func (p *Property[T]) ExportValue(v T) (any, error) {
	if p.constant {
		v = p.def
	}
	return p.typ.Export(v)
}

// resolve, export and defaultValue implement Definition
func (p *Property[T]) resolve(r Reader, rec *ErrorRecorder) (any, error) {
	return p.Value(r, rec)
}

func (p *Property[T]) export(v any) (any, error) {
	typed, ok := v.(T)
	if !ok {
		typed = p.def
	}
	return p.ExportValue(typed)
}

func (p *Property[T]) defaultValue() any { return p.def }

// Definition is the type-erased view of a Property, used to register
// properties of different types with one SettingsManager.
type Definition interface {
	Path() string
	IsPresent(r Reader) bool

	resolve(r Reader, rec *ErrorRecorder) (any, error)
	export(v any) (any, error)
	defaultValue() any
}

// IntProperty is an int property.
func IntProperty(path string, def int) *Property[int] {
	return NewProperty(path, Int(), def)
}

// StringProperty is a string property.
func StringProperty(path string, def string) *Property[string] {
	return NewProperty(path, String(), def)
}

// BoolProperty is a bool property.
func BoolProperty(path string, def bool) *Property[bool] {
	return NewProperty(path, Bool(), def)
}

// Float64Property is a float64 property.
func Float64Property(path string, def float64) *Property[float64] {
	return NewProperty(path, Float64(), def)
}

// DurationProperty is a time.Duration property.
func DurationProperty(path string, def time.Duration) *Property[time.Duration] {
	return NewProperty(path, Duration(), def)
}

// EnumProperty is a property of an enum registered with RegisterEnum.
func EnumProperty[E comparable](path string, def E) *Property[E] {
	return NewProperty(path, Enum[E](), def)
}

// ListProperty is a list property over elem.
func ListProperty[E any](path string, elem PropertyType[E], def []E) *Property[[]E] {
	return NewProperty[[]E](path, ListOf(elem), def)
}

// MapProperty is a string-keyed map property over value.
func MapProperty[V any](path string, value PropertyType[V], def map[string]V) *Property[map[string]V] {
	return NewProperty[map[string]V](path, MapOf(value), def)
}

// BeanProperty is a bean property. The error reports structural problems
// with T (unsupported field types, clashing export names, self-references).
func BeanProperty[T any](path string, def T) (*Property[T], error) {
	typ, err := BeanOf[T]()
	if err != nil {
		return nil, err
	}
	return NewProperty[T](path, typ, def), nil
}
