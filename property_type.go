// property_type.go: Property type abstraction
//
// A PropertyType knows how to read a T from the store, how to turn a T back
// into its export form and whether a value of its shape exists at a path.
// Scalars delegate to the transformer chain, lists and maps compose an
// element type, and beans delegate to the Mapper.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// PropertyType reads and exports values of type T.
type PropertyType[T any] interface {
	// Read returns the value at path. ok is false when the path is missing or
	// its content could not be converted (the failure is then recorded on rec).
	Read(r Reader, path string, rec *ErrorRecorder) (value T, ok bool, err error)

	// Export converts value into its untyped store form.
	Export(value T) (any, error)

	// IsPresent reports whether a node of the expected shape exists at path.
	IsPresent(r Reader, path string) bool
}

// typeOf returns the reflect.Type of T, including interface types
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// ScalarType converts leaf values through a transformer chain.
type ScalarType[T any] struct {
	chain *Chain
	t     reflect.Type
}

// Scalar returns a scalar type for T using the default chain.
func Scalar[T any]() *ScalarType[T] {
	return &ScalarType[T]{chain: defaultMapper.Chain(), t: typeOf[T]()}
}

// WithChain returns a copy of the type converting through chain.
func (s *ScalarType[T]) WithChain(chain *Chain) *ScalarType[T] {
	return &ScalarType[T]{chain: chain, t: s.t}
}

// Read implements PropertyType.
func (s *ScalarType[T]) Read(r Reader, path string, rec *ErrorRecorder) (T, bool, error) {
	var zero T
	raw, ok := r.Scalar(path)
	if !ok {
		if r.Contains(path) {
			rec.Record(path, "expected a scalar for %s", s.t)
		}
		return zero, false, nil
	}
	v, ok := s.chain.Convert(s.t, raw)
	if !ok {
		rec.Record(path, "cannot convert %v (%T) to %s", raw, raw, s.t)
		return zero, false, nil
	}
	return v.(T), true, nil
}

// Export implements PropertyType.
func (s *ScalarType[T]) Export(value T) (any, error) {
	return defaultMapper.Export(reflect.ValueOf(value))
}

// IsPresent implements PropertyType.
func (s *ScalarType[T]) IsPresent(r Reader, path string) bool {
	_, ok := r.Scalar(path)
	return ok
}

// Int is the scalar type for int.
func Int() *ScalarType[int] { return Scalar[int]() }

// Int64 is the scalar type for int64.
func Int64() *ScalarType[int64] { return Scalar[int64]() }

// Float64 is the scalar type for float64.
func Float64() *ScalarType[float64] { return Scalar[float64]() }

// Bool is the scalar type for bool.
func Bool() *ScalarType[bool] { return Scalar[bool]() }

// String is the scalar type for string.
func String() *ScalarType[string] { return Scalar[string]() }

// Duration is the scalar type for time.Duration.
func Duration() *ScalarType[time.Duration] { return Scalar[time.Duration]() }

// Enum is the scalar type for an enum registered with RegisterEnum.
func Enum[E comparable]() *ScalarType[E] { return Scalar[E]() }

// ListType reads sequences element by element. Elements that fail to convert
// are dropped and recorded; the order of the remaining elements is kept.
type ListType[E any] struct {
	elem PropertyType[E]
}

// ListOf returns a list type with the given element type.
func ListOf[E any](elem PropertyType[E]) *ListType[E] {
	return &ListType[E]{elem: elem}
}

// Read implements PropertyType.
func (l *ListType[E]) Read(r Reader, path string, rec *ErrorRecorder) ([]E, bool, error) {
	items, ok := r.List(path)
	if !ok {
		if r.Contains(path) {
			rec.Record(path, "expected a list")
		}
		return nil, false, nil
	}

	out := make([]E, 0, len(items))
	for i := range items {
		itemPath := IndexPath(path, i)
		v, ok, err := l.elem.Read(r, itemPath, rec)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if !r.Contains(itemPath) {
				rec.Record(itemPath, "null element dropped")
			}
			continue
		}
		out = append(out, v)
	}
	return out, true, nil
}

// Export implements PropertyType.
func (l *ListType[E]) Export(value []E) (any, error) {
	out := make([]any, 0, len(value))
	for _, v := range value {
		item, err := l.elem.Export(v)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// IsPresent implements PropertyType.
func (l *ListType[E]) IsPresent(r Reader, path string) bool {
	_, ok := r.List(path)
	return ok
}

// MapType reads string-keyed mappings value by value. Values that fail to
// convert are dropped and recorded.
type MapType[V any] struct {
	value PropertyType[V]
}

// MapOf returns a map type with the given value type.
func MapOf[V any](value PropertyType[V]) *MapType[V] {
	return &MapType[V]{value: value}
}

// Read implements PropertyType.
func (m *MapType[V]) Read(r Reader, path string, rec *ErrorRecorder) (map[string]V, bool, error) {
	entries, ok := r.Mapping(path)
	if !ok {
		if r.Contains(path) {
			rec.Record(path, "expected a mapping")
		}
		return nil, false, nil
	}

	out := make(map[string]V, len(entries))
	for _, k := range sortedKeys(entries) {
		v, ok, err := m.value.Read(r, JoinPath(path, k), rec)
		if err != nil {
			return nil, false, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, true, nil
}

// Export implements PropertyType.
func (m *MapType[V]) Export(value map[string]V) (any, error) {
	keys := make([]string, 0, len(value))
	for k := range value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Section, 0, len(keys))
	for _, k := range keys {
		item, err := m.value.Export(value[k])
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: k, Value: item})
	}
	return out, nil
}

// IsPresent implements PropertyType.
func (m *MapType[V]) IsPresent(r Reader, path string) bool {
	_, ok := r.Mapping(path)
	return ok
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BeanType delegates reading and exporting to a Mapper. It accepts any
// mappable T: structs, pointers to structs, and composites of them.
type BeanType[T any] struct {
	mapper *Mapper
	t      reflect.Type
}

// BeanOf validates T and returns its bean type. Unsupported shapes, clashing
// export names and self-referencing types are reported here, before any
// store is read.
func BeanOf[T any]() (*BeanType[T], error) {
	t := typeOf[T]()
	if err := ValidateType(t); err != nil {
		return nil, err
	}
	return &BeanType[T]{mapper: defaultMapper, t: t}, nil
}

// MustBeanOf is BeanOf for package-level declarations; it panics on schema errors.
func MustBeanOf[T any]() *BeanType[T] {
	b, err := BeanOf[T]()
	if err != nil {
		panic(fmt.Sprintf("eidos: %v", err))
	}
	return b
}

// WithMapper returns a copy of the type using mapper.
func (b *BeanType[T]) WithMapper(mapper *Mapper) *BeanType[T] {
	return &BeanType[T]{mapper: mapper, t: b.t}
}

// Read implements PropertyType.
func (b *BeanType[T]) Read(r Reader, path string, rec *ErrorRecorder) (T, bool, error) {
	var zero T
	v, ok, err := b.mapper.Map(b.t, r, path, rec)
	if err != nil || !ok {
		return zero, false, err
	}
	return v.Interface().(T), true, nil
}

// Export implements PropertyType.
func (b *BeanType[T]) Export(value T) (any, error) {
	return b.mapper.Export(reflect.ValueOf(&value).Elem())
}

// IsPresent implements PropertyType.
func (b *BeanType[T]) IsPresent(r Reader, path string) bool {
	switch shapeOf(b.t) {
	case shapeBean, shapeMap:
		_, ok := r.Mapping(path)
		return ok
	case shapeList:
		_, ok := r.List(path)
		return ok
	case shapeScalar:
		_, ok := r.Scalar(path)
		return ok
	default:
		return r.Contains(path)
	}
}
