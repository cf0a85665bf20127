// enum.go: Enum registration for named constant types
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
)

// enumInfo holds the declared constants of one enum type
type enumInfo struct {
	names  []string
	values []reflect.Value
}

var enumRegistry sync.Map // reflect.Type -> *enumInfo

// RegisterEnum declares the constants of a named type so that the enum
// transformer can match store strings against their names. Names come from
// fmt.Stringer when implemented, otherwise from the %v formatting.
//
//	type Level int
//	const (Debug Level = iota; Info; Warn)
//	func (l Level) String() string { ... }
//
//	func init() { eidos.RegisterEnum(Debug, Info, Warn) }
//
// Registering the same type again replaces its constants.
func RegisterEnum[E comparable](constants ...E) {
	t := reflect.TypeOf((*E)(nil)).Elem()
	info := &enumInfo{
		names:  make([]string, 0, len(constants)),
		values: make([]reflect.Value, 0, len(constants)),
	}
	for _, c := range constants {
		info.names = append(info.names, enumConstantName(c))
		info.values = append(info.values, reflect.ValueOf(c))
	}
	enumRegistry.Store(t, info)
}

// IsEnum reports whether t was registered with RegisterEnum.
func IsEnum(t reflect.Type) bool {
	_, ok := enumRegistry.Load(t)
	return ok
}

func enumConstantName(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

// enumByName matches name case-insensitively against the constants of t
func enumByName(t reflect.Type, name string) (reflect.Value, bool) {
	raw, ok := enumRegistry.Load(t)
	if !ok {
		return reflect.Value{}, false
	}
	info := raw.(*enumInfo)
	name = strings.TrimSpace(name)
	for i, n := range info.names {
		if strings.EqualFold(n, name) {
			return info.values[i], true
		}
	}
	return reflect.Value{}, false
}

// enumNameOf returns the declared name of an enum value
func enumNameOf(v reflect.Value) (string, bool) {
	raw, ok := enumRegistry.Load(v.Type())
	if !ok {
		return "", false
	}
	info := raw.(*enumInfo)
	current := v.Interface()
	for i, c := range info.values {
		if c.Interface() == current {
			return info.names[i], true
		}
	}
	return "", false
}
