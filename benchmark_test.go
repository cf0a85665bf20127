// benchmark_test.go - eidos Benchmark Tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"reflect"
	"testing"
	"time"
)

const benchYAML = `
server:
  host: api.local
  port: 9000
  timeout: 45s
tags: [a, b, c, d]
limits:
  cpu: 2
  mem: 512
`

// Benchmark parsing a small settings document
func BenchmarkParseDocument(b *testing.B) {
	data := []byte(benchYAML)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseDocument(data); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark path lookups, including an indexed one
func BenchmarkDocumentScalar(b *testing.B) {
	doc, err := ParseDocument([]byte(benchYAML))
	if err != nil {
		b.Fatal(err)
	}
	paths := []string{"server.host", "server.port", "tags[2]", "limits.mem"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, path := range paths {
			doc.Scalar(path)
		}
	}
}

// Benchmark the default chain on the conversions settings files hit most
func BenchmarkChainConvert(b *testing.B) {
	chain := DefaultChain()
	intType := reflect.TypeOf(0)
	durationType := reflect.TypeOf(time.Duration(0))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		chain.Convert(intType, "8080")
		chain.Convert(durationType, "30s")
	}
}

// Benchmark bean mapping with cached field metadata
func BenchmarkMapIntoBean(b *testing.B) {
	doc, err := ParseDocument([]byte(benchYAML))
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := MapInto[serverBean](doc, "server"); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark concurrent Lookup on a loaded manager
func BenchmarkLookupParallel(b *testing.B) {
	dir := b.TempDir()
	sm, err := NewSettingsManager(dir+"/settings.yml", WithErrorHandler(func(error, string) {}))
	if err != nil {
		b.Fatal(err)
	}
	port := IntProperty("server.port", 8080)
	if err := sm.Register(port); err != nil {
		b.Fatal(err)
	}
	if err := sm.Load(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Lookup(sm, port)
		}
	})
}
