// bean.go: Bean property definition extraction
//
// A bean is a struct whose exported fields map one-to-one to configuration
// sub-paths. Field descriptors are derived once per struct type from the
// declaration (order, names, tags) and cached for the process lifetime.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/agilira/go-errors"
)

// BeanField describes one mapped field of a bean.
type BeanField struct {
	Name       string       // Go field name
	ExportName string       // Path segment used in the store
	Type       reflect.Type // Field type
	Index      []int        // Index sequence for reflect.Value.FieldByIndex
	Declaring  reflect.Type // Struct that declares the field (differs for embedded structs)
}

// shape classifies a type for mapping dispatch
type shape uint8

const (
	shapeUnsupported shape = iota
	shapeScalar
	shapePointer
	shapeList
	shapeMap
	shapeBean
)

// shapeOf classifies t without validating its element types
func shapeOf(t reflect.Type) shape {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) && t.Kind() != reflect.Pointer {
		return shapeScalar
	}
	switch k := t.Kind(); {
	case k == reflect.Bool, k == reflect.String, isIntKind(k), isUintKind(k), isFloatKind(k):
		return shapeScalar
	case k == reflect.Pointer:
		return shapePointer
	case k == reflect.Slice:
		return shapeList
	case k == reflect.Map:
		return shapeMap
	case k == reflect.Struct:
		return shapeBean
	default:
		return shapeUnsupported
	}
}

var (
	fieldCache     sync.Map // reflect.Type -> []BeanField
	validatedTypes sync.Map // reflect.Type -> validResult
)

type validResult struct{ err error }

// BeanFields returns the ordered field descriptors of struct type t. Embedded
// structs contribute their fields at the embedding position. The whole type
// graph reachable from t is validated: unsupported shapes, clashing export
// names and self-references fail fast.
func BeanFields(t reflect.Type) ([]BeanField, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.New(ErrCodeUnsupportedType, fmt.Sprintf("%v is not a struct type", t))
	}
	if err := ValidateType(t); err != nil {
		return nil, err
	}
	return declaredFields(t)
}

// ValidateType checks that t (and everything reachable from it) can be mapped.
// The result is cached per type.
func ValidateType(t reflect.Type) error {
	if t == nil {
		return errors.New(ErrCodeUnsupportedType, "nil type")
	}
	if cached, ok := validatedTypes.Load(t); ok {
		return cached.(validResult).err
	}
	v := &typeValidator{visiting: make(map[reflect.Type]bool)}
	err := v.check(t, t.String())
	validatedTypes.Store(t, validResult{err: err})
	return err
}

// typeValidator walks a type graph, tracking the structs on the current path
type typeValidator struct {
	visiting map[reflect.Type]bool
}

func (v *typeValidator) check(t reflect.Type, where string) error {
	switch shapeOf(t) {
	case shapeScalar:
		return nil

	case shapePointer:
		if t.Elem().Kind() == reflect.Pointer {
			return unsupported(t, where, "pointer to pointer")
		}
		return v.check(t.Elem(), where)

	case shapeList:
		if t.Elem().Kind() == reflect.Interface {
			return unsupported(t, where, "unresolved element type")
		}
		return v.check(t.Elem(), where+"[]")

	case shapeMap:
		if t.Key().Kind() != reflect.String {
			return unsupported(t, where, "map keys must be strings")
		}
		if t.Elem().Kind() == reflect.Interface {
			return unsupported(t, where, "unresolved value type")
		}
		return v.check(t.Elem(), where+"{}")

	case shapeBean:
		if v.visiting[t] {
			return errors.New(ErrCodeRecursiveType, fmt.Sprintf("type %s references itself at %s", t, where)).
				WithContext("type", t.String())
		}
		if cached, ok := validatedTypes.Load(t); ok {
			return cached.(validResult).err
		}

		v.visiting[t] = true
		defer delete(v.visiting, t)

		fields, err := declaredFields(t)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if err := v.check(f.Type, f.Declaring.String()+"."+f.Name); err != nil {
				return err
			}
		}
		return nil
	}

	return unsupported(t, where, "unsupported kind "+t.Kind().String())
}

func unsupported(t reflect.Type, where, reason string) error {
	return errors.New(ErrCodeUnsupportedType, fmt.Sprintf("cannot map %s at %s: %s", t, where, reason)).
		WithContext("type", t.String()).
		WithContext("field", where)
}

// declaredFields extracts (and caches) the field list of a struct without
// validating field types.
func declaredFields(t reflect.Type) ([]BeanField, error) {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]BeanField), nil
	}

	fields := make([]BeanField, 0, t.NumField())
	if err := collectFields(t, nil, &fields); err != nil {
		return nil, err
	}

	seen := make(map[string]BeanField, len(fields))
	for _, f := range fields {
		if prev, dup := seen[f.ExportName]; dup {
			return nil, errors.New(ErrCodeDuplicateExportName,
				fmt.Sprintf("fields %s.%s and %s.%s both export as '%s'",
					prev.Declaring, prev.Name, f.Declaring, f.Name, f.ExportName)).
				WithContext("type", t.String())
		}
		seen[f.ExportName] = f
	}

	// Racing first accesses compute the same slice; either store is fine.
	fieldCache.Store(t, fields)
	return fields, nil
}

func collectFields(t reflect.Type, prefix []int, out *[]BeanField) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get(TagName)
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")

		index := make([]int, len(prefix)+1)
		copy(index, prefix)
		index[len(prefix)] = i

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct {
				return errors.New(ErrCodeUnsupportedType,
					fmt.Sprintf("embedded pointer %s in %s is not supported", ft, t)).
					WithContext("type", t.String()).
					WithContext("field", sf.Name)
			}
			if ft.Kind() == reflect.Struct {
				if err := collectFields(ft, index, out); err != nil {
					return err
				}
				continue
			}
		}

		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = KebabCase(sf.Name)
		}

		*out = append(*out, BeanField{
			Name:       sf.Name,
			ExportName: name,
			Type:       sf.Type,
			Index:      index,
			Declaring:  t,
		})
	}
	return nil
}

// KebabCase converts a Go identifier to the store naming convention:
// "MaxConnections" -> "max-connections", "HasID" -> "has-id",
// "HTTPPort" -> "http-port", "retry_count" -> "retry-count".
func KebabCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)

	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			continue
		}
		if unicode.IsUpper(r) {
			if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('-')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSuffix(b.String(), "-")
}
