// Package storage enumerates source objects for file-backed adapters.
// Implementations return keys the DuckDB readers can open directly:
// absolute filesystem paths for local stores, s3:// URLs for buckets.
package storage

import (
	"context"
)

// Object is one listable source object. Key is directly readable by the
// engine; Rel is the pattern-relative path used for timestamp inference.
type Object struct {
	Key  string
	Rel  string
	Size int64
}

// Lister expands a glob-style pattern into concrete objects. Patterns
// use * (within one path segment), ** (across segments), and ?.
type Lister interface {
	List(ctx context.Context, pattern string) ([]Object, error)
}
