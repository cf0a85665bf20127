// mapper.go: Recursive bean mapping engine
//
// The mapper turns the untyped tree behind a Reader into typed Go values and
// back. Every recursion level follows the same order: scalars go through the
// transformer chain, slices and string-keyed maps recurse per element, pointers
// recurse into their element, and structs are built field by field.
//
// Conversion failures are recorded on the caller's ErrorRecorder and never
// abort siblings. Structural problems and field access failures are returned
// as errors.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/agilira/go-errors"
)

// Defaulter is implemented by beans that need non-zero defaults. SetDefaults
// is called on every freshly constructed instance before fields are mapped;
// an error aborts the mapping of that path.
type Defaulter interface {
	SetDefaults() error
}

var (
	defaulterType     = reflect.TypeOf((*Defaulter)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	defaultMapper     = NewMapper()
)

// exportBaseTypes maps scalar kinds to the unnamed type used in export form
var exportBaseTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeOf(false),
	reflect.String:  reflect.TypeOf(""),
	reflect.Int:     reflect.TypeOf(int(0)),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint:    reflect.TypeOf(uint(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Uintptr: reflect.TypeOf(uintptr(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
}

// Mapper maps store sub-trees onto Go types. A Mapper is stateless apart from
// its transformer chain and may be shared; the ErrorRecorder passed to Map
// may not.
type Mapper struct {
	chain *Chain
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithChain replaces the transformer chain used for scalar leaves.
func WithChain(chain *Chain) MapperOption {
	return func(m *Mapper) {
		if chain != nil {
			m.chain = chain
		}
	}
}

// NewMapper creates a mapper using DefaultChain unless configured otherwise.
func NewMapper(opts ...MapperOption) *Mapper {
	m := &Mapper{chain: DefaultChain()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Chain returns the transformer chain of the mapper.
func (m *Mapper) Chain() *Chain {
	return m.chain
}

// Map builds a value of type t from the store at path. It returns ok=false
// when nothing usable exists there; conversion failures are recorded on rec
// and the best-effort value is still returned. Errors are reserved for
// unsupported types, failing constructors and field access failures.
func (m *Mapper) Map(t reflect.Type, r Reader, path string, rec *ErrorRecorder) (reflect.Value, bool, error) {
	if err := ValidateType(t); err != nil {
		return reflect.Value{}, false, err
	}
	if rec == nil {
		rec = NewErrorRecorder()
	}
	return m.mapValue(t, r, path, rec)
}

// MapInto maps the sub-tree at path onto a new T using the default mapper.
// The returned recorder is never nil.
func MapInto[T any](r Reader, path string) (T, *ErrorRecorder, error) {
	return MapIntoWith[T](defaultMapper, r, path)
}

// MapIntoWith is MapInto with an explicit mapper.
func MapIntoWith[T any](m *Mapper, r Reader, path string) (T, *ErrorRecorder, error) {
	var zero T
	rec := NewErrorRecorder()
	v, ok, err := m.Map(reflect.TypeOf((*T)(nil)).Elem(), r, path, rec)
	if err != nil || !ok {
		return zero, rec, err
	}
	return v.Interface().(T), rec, nil
}

// mapValue records a failure only when the path holds data that cannot be
// converted; a missing path is a silent absent result.
func (m *Mapper) mapValue(t reflect.Type, r Reader, path string, rec *ErrorRecorder) (reflect.Value, bool, error) {
	if raw, ok := r.Scalar(path); ok {
		if v, ok := m.chain.Convert(t, raw); ok {
			return reflect.ValueOf(v), true, nil
		}
	}

	switch shapeOf(t) {
	case shapeScalar:
		if raw, ok := r.Scalar(path); ok {
			rec.Record(path, "cannot convert %v (%T) to %s", raw, raw, t)
		} else if r.Contains(path) {
			rec.Record(path, "expected a scalar for %s", t)
		}
		return reflect.Value{}, false, nil

	case shapePointer:
		elem, ok, err := m.mapValue(t.Elem(), r, path, rec)
		if err != nil || !ok {
			return reflect.Value{}, false, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, true, nil

	case shapeList:
		return m.mapList(t, r, path, rec)

	case shapeMap:
		return m.mapMap(t, r, path, rec)

	case shapeBean:
		return m.mapBean(t, r, path, rec)
	}

	return reflect.Value{}, false, errors.New(ErrCodeUnsupportedType, fmt.Sprintf("cannot map %s", t)).
		WithContext("path", path)
}

func (m *Mapper) mapList(t reflect.Type, r Reader, path string, rec *ErrorRecorder) (reflect.Value, bool, error) {
	items, ok := r.List(path)
	if !ok {
		if r.Contains(path) {
			rec.Record(path, "expected a list for %s", t)
		}
		return reflect.Value{}, false, nil
	}

	out := reflect.MakeSlice(t, 0, len(items))
	for i := range items {
		itemPath := IndexPath(path, i)
		v, ok, err := m.mapValue(t.Elem(), r, itemPath, rec)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if !ok {
			if !r.Contains(itemPath) {
				rec.Record(itemPath, "null element dropped")
			}
			continue
		}
		out = reflect.Append(out, v)
	}
	return out, true, nil
}

func (m *Mapper) mapMap(t reflect.Type, r Reader, path string, rec *ErrorRecorder) (reflect.Value, bool, error) {
	entries, ok := r.Mapping(path)
	if !ok {
		if r.Contains(path) {
			rec.Record(path, "expected a mapping for %s", t)
		}
		return reflect.Value{}, false, nil
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := reflect.MakeMapWithSize(t, len(keys))
	for _, k := range keys {
		v, ok, err := m.mapValue(t.Elem(), r, JoinPath(path, k), rec)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if !ok {
			continue
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), v)
	}
	return out, true, nil
}

func (m *Mapper) mapBean(t reflect.Type, r Reader, path string, rec *ErrorRecorder) (reflect.Value, bool, error) {
	if _, ok := r.Mapping(path); !ok {
		if r.Contains(path) {
			rec.Record(path, "expected a mapping for %s", t)
		}
		return reflect.Value{}, false, nil
	}

	fields, err := declaredFields(t)
	if err != nil {
		return reflect.Value{}, false, err
	}

	bean, err := newInstance(t)
	if err != nil {
		return reflect.Value{}, false, errors.Wrap(err, ErrCodeConstructionFailed,
			fmt.Sprintf("cannot construct %s", t)).
			WithContext("path", path)
	}

	for _, f := range fields {
		fieldPath := JoinPath(path, f.ExportName)
		if !r.Contains(fieldPath) {
			continue
		}
		v, ok, err := m.mapValue(f.Type, r, fieldPath, rec)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if !ok {
			continue
		}
		if err := setField(bean, f, v); err != nil {
			return reflect.Value{}, false, err
		}
	}
	return bean, true, nil
}

// newInstance returns an addressable zero value of struct t with SetDefaults applied
func newInstance(t reflect.Type) (reflect.Value, error) {
	if t.Kind() != reflect.Struct {
		return reflect.Value{}, errors.New(ErrCodeUnsupportedType, fmt.Sprintf("%s is not a struct", t))
	}
	ptr := reflect.New(t)
	if ptr.Type().Implements(defaulterType) {
		if err := callDefaults(ptr.Interface().(Defaulter)); err != nil {
			return reflect.Value{}, err
		}
	}
	return ptr.Elem(), nil
}

func callDefaults(d Defaulter) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("SetDefaults panicked: %v", p)
		}
	}()
	return d.SetDefaults()
}

// setField writes v into the field described by f, wrapping any failure with
// the declaring type and field name
func setField(bean reflect.Value, f BeanField, v reflect.Value) (err error) {
	fail := func(reason string) error {
		return errors.New(ErrCodeFieldAccess,
			fmt.Sprintf("cannot set field %s.%s: %s", f.Declaring, f.Name, reason)).
			WithContext("declaring_type", f.Declaring.String()).
			WithContext("field", f.Name).
			WithContext("value", fmt.Sprintf("%v", v))
	}
	defer func() {
		if p := recover(); p != nil {
			err = fail(fmt.Sprintf("%v", p))
		}
	}()

	field, ferr := bean.FieldByIndexErr(f.Index)
	if ferr != nil {
		return fail(ferr.Error())
	}
	if !field.CanSet() {
		return fail("field is not settable")
	}
	if !v.IsValid() || !v.Type().AssignableTo(field.Type()) {
		return fail(fmt.Sprintf("value of type %v is not assignable to %s", v.Type(), field.Type()))
	}
	field.Set(v)
	return nil
}

// getField reads the field described by f with the same error wrapping as setField
func getField(bean reflect.Value, f BeanField) (v reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New(ErrCodeFieldAccess,
				fmt.Sprintf("cannot read field %s.%s: %v", f.Declaring, f.Name, p)).
				WithContext("declaring_type", f.Declaring.String()).
				WithContext("field", f.Name)
		}
	}()

	field, ferr := bean.FieldByIndexErr(f.Index)
	if ferr != nil {
		return reflect.Value{}, errors.New(ErrCodeFieldAccess,
			fmt.Sprintf("cannot read field %s.%s: %v", f.Declaring, f.Name, ferr)).
			WithContext("declaring_type", f.Declaring.String()).
			WithContext("field", f.Name)
	}
	return field, nil
}

// Export converts a typed value into its untyped store form: scalars in their
// base Go type, enums and durations as strings, slices as []any, maps and
// beans as Sections (maps sorted by key, beans in field order).
func (m *Mapper) Export(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	t := v.Type()

	if IsEnum(t) {
		if name, ok := enumNameOf(v); ok {
			return name, nil
		}
	}
	if t == durationType {
		return time.Duration(v.Int()).String(), nil
	}
	if t.Kind() != reflect.Pointer && t.Implements(textMarshalerType) {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeExportFailed, fmt.Sprintf("cannot export %s", t))
		}
		return string(text), nil
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return m.Export(v.Elem())

	case reflect.Slice:
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := m.Export(v.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, errors.New(ErrCodeUnsupportedType, fmt.Sprintf("cannot export %s: map keys must be strings", t))
		}
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		out := make(Section, 0, len(keys))
		for _, k := range keys {
			item, err := m.Export(v.MapIndex(reflect.ValueOf(k).Convert(t.Key())))
			if err != nil {
				return nil, err
			}
			out = append(out, Entry{Key: k, Value: item})
		}
		return out, nil

	case reflect.Struct:
		fields, err := BeanFields(t)
		if err != nil {
			return nil, err
		}
		out := make(Section, 0, len(fields))
		for _, f := range fields {
			fv, err := getField(v, f)
			if err != nil {
				return nil, err
			}
			item, err := m.Export(fv)
			if err != nil {
				return nil, err
			}
			if item == nil {
				continue
			}
			out = append(out, Entry{Key: f.ExportName, Value: item})
		}
		return out, nil
	}

	if base, ok := exportBaseTypes[t.Kind()]; ok {
		return v.Convert(base).Interface(), nil
	}
	return nil, errors.New(ErrCodeUnsupportedType, fmt.Sprintf("cannot export %s", t))
}

// ExportValue exports any Go value with the default mapper.
func ExportValue(value any) (any, error) {
	return defaultMapper.Export(reflect.ValueOf(value))
}
