// flag_overlay.go: Command-line overrides over a property store
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	flashflags "github.com/agilira/flash-flags"
)

// FlagOverlay is a Reader that serves changed command-line flags ahead of a
// base Reader. A flag overrides the property path equal to its name unless
// it was bound to another path with Bind.
//
//	fs := flashflags.New("server")
//	fs.Int("port", 8080, "listen port")
//	_ = fs.Parse(os.Args[1:])
//
//	overlay := eidos.NewFlagOverlay(doc, fs).Bind("port", "server.port")
//	port, _ := eidos.IntProperty("server.port", 8080).Value(overlay, nil)
//
// Flags that were not set on the command line are ignored, so their
// defaults never shadow the file.
type FlagOverlay struct {
	layer
	flags    *flashflags.FlagSet
	bindings map[string]string // flag name -> property path
}

// NewFlagOverlay layers flags over base.
func NewFlagOverlay(base Reader, flags *flashflags.FlagSet) *FlagOverlay {
	o := &FlagOverlay{
		flags:    flags,
		bindings: make(map[string]string),
	}
	o.layer = layer{base: base, overrides: o.Overrides}
	return o
}

// Bind maps a flag to a property path.
func (o *FlagOverlay) Bind(flag, path string) *FlagOverlay {
	o.bindings[flag] = path
	return o
}

// Overrides returns the changed flags keyed by property path.
func (o *FlagOverlay) Overrides() map[string]any {
	out := make(map[string]any)
	if o.flags == nil {
		return out
	}
	o.flags.VisitAll(func(flag *flashflags.Flag) {
		if !flag.Changed() {
			return
		}
		path := flag.Name()
		if bound, ok := o.bindings[path]; ok {
			path = bound
		}
		out[path] = flagValue(flag.Value())
	})
	return out
}

// flagValue turns slice flags into store sequences
func flagValue(v any) any {
	if items, ok := v.([]string); ok {
		list := make([]any, len(items))
		for i, s := range items {
			list[i] = s
		}
		return list
	}
	return v
}
