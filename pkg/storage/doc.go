// Package storage provides the key-value store that backs saved diagrams.
//
// # Store
//
// [Store] is a small byte-oriented contract: Get, Set, Delete and a sorted
// prefix listing. Keys are opaque strings; callers namespace them with a
// prefix such as "diagram:".
//
// # Backends
//
//   - [Memory]: process-local map, used by tests and the `view` command
//   - [FileStore]: one JSON file per key in a directory (default for the CLI)
//   - [SQLiteStore]: a single kv table, SQL built with squirrel
//   - [RedisStore]: plain string keys, prefix listing via SCAN MATCH
//   - [MongoStore]: one document per key, prefix listing via an _id regex
//
// [Open] selects a backend from a [Config], as loaded by pkg/config:
//
//	store, err := storage.Open(ctx, storage.Config{Backend: "sqlite", Path: "diagrams.db"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// A missing key is reported as found=false, never as an error.
package storage
