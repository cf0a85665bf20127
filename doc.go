// Package eidos binds hierarchical configuration stores to typed Go values.
//
// A store is untyped: it answers path queries with scalars, lists or nested
// mappings. Application code is typed: it wants an int port, a
// time.Duration timeout, an enum log level or a whole struct. eidos sits in
// between, converting in both directions and recording every value it could
// not convert instead of failing the whole load.
//
// # Architecture Overview
//
// eidos consists of five cooperating parts:
//  1. Reader/Writer: the store abstraction, with Document (ordered YAML) as
//     the default implementation and dotted paths such as "servers[0].host"
//  2. Transformer chain: raw store value to target type conversions
//     (numbers, booleans, durations, enums, encoding.TextUnmarshaler)
//  3. Mapper: reflection driven mapping of beans, lists and maps, plus
//     export back to an ordered Section
//  4. Properties: typed, defaulted paths served by a SettingsManager that
//     loads, migrates and atomically saves a settings file
//  5. Overlays and audit: flag and environment overrides, file watching,
//     and an audit trail of loads, conversion failures and saves
//
// # Mapping Beans
//
// A bean is a struct whose exported fields are read from the keys of a
// mapping. Keys are the kebab-case field names unless a config tag says
// otherwise; embedded structs are flattened.
//
//	type Server struct {
//		Host    string
//		Port    int
//		Timeout time.Duration
//		HasTLS  bool `config:"has-tls"`
//	}
//
//	func (s *Server) SetDefaults() { s.Host = "localhost"; s.Port = 8080 }
//
//	doc, err := eidos.LoadDocument("settings.yml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	server, rec, err := eidos.MapInto[Server](doc, "server")
//	if err != nil {
//		log.Fatal(err) // unsupported type, name clash or cycle
//	}
//	for _, msg := range rec.Messages() {
//		log.Printf("config: %s", msg) // field kept its default
//	}
//
// Missing keys keep the value set by SetDefaults. A value that cannot be
// converted is recorded and the field keeps its default; siblings are
// still mapped. Schema problems fail fast with a coded error.
//
// # Settings Files
//
// Properties describe one typed path each. A SettingsManager registers them,
// loads the file, falls back to defaults on bad values and rewrites the file
// when it is incomplete or invalid:
//
//	var (
//		port  = eidos.IntProperty("server.port", 8080)
//		level = eidos.EnumProperty("log.level", LevelInfo)
//		tags  = eidos.ListProperty("tags", eidos.String(), nil)
//	)
//
//	sm, _ := eidos.NewSettingsManager("settings.yml", eidos.WithEnvironment("APP"))
//	_ = sm.Register(port, level, tags)
//	if err := sm.Load(); err != nil {
//		log.Fatal(err)
//	}
//	listen(eidos.Lookup(sm, port))
//
// Saved files list properties in registration order. Writes go through a
// temp file and a rename, and are skipped when the content hash is unchanged.
//
// # Binding Variables
//
// ConfigBinder binds existing variables in one fluent chain and applies them
// only when every conversion succeeded:
//
//	var host string
//	var timeout time.Duration
//	err := eidos.BindFromConfig(raw).
//		BindString(&host, "database.host", "localhost").
//		BindDuration(&timeout, "database.timeout", 5*time.Second).
//		Apply()
//
// # Error Handling
//
// Errors are github.com/agilira/go-errors values carrying one of the
// ErrCode constants, so callers can branch on the code:
//
//	if coder, ok := err.(errors.ErrorCoder); ok && coder.ErrorCode() == eidos.ErrCodeRecursiveType {
//		...
//	}
//
// # Other Stores
//
// Any Reader works: NewMapReader wraps a plain map, and the
// providers/koanf package adapts a koanf instance, which brings JSON input.
//
// Repository: https://github.com/agilira/eidos
package eidos
