// Package jsonldb provides a generic, concurrent-safe, JSONL-backed table.
//
// # Overview
//
// [Table] stores rows in a JSONL (JSON Lines) file with full in-memory caching
// for fast reads. Every read returns clones, so callers can never mutate the
// cached rows behind the table's back.
//
// # Concurrency: Pessimistic Locking
//
// [Table.Modify] holds the write lock for the entire read-modify-write
// operation and rewrites the file before releasing it. A failed callback or a
// failed write leaves both the file and the cache untouched.
//
// # File Format
//
// Line 1 is a schema header (format version and the columns reflected from the
// row type's json and jsonschema tags); every following line is one JSON row.
package jsonldb
