package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/featherbox/featherbox/internal/domain"
)

// LocalStore lists files under a base directory.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a LocalStore rooted at basePath.
func NewLocalStore(basePath string) *LocalStore {
	return &LocalStore{basePath: basePath}
}

// List walks the base directory and returns every regular file whose
// base-relative path matches the pattern, as absolute paths in sorted
// order. A missing base directory yields an empty listing, matching the
// behavior of an empty bucket.
func (s *LocalStore) List(ctx context.Context, pattern string) ([]Object, error) {
	re, err := globToRegexp(pattern)
	if err != nil {
		return nil, domain.ErrAction(domain.ErrKindSourceObjectMissing, err)
	}

	root, err := filepath.Abs(s.basePath)
	if err != nil {
		return nil, domain.ErrAction(domain.ErrKindSourceObjectMissing, err)
	}

	var out []Object
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !re.MatchString(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{Key: path, Rel: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.ErrAction(domain.ErrKindSourceObjectMissing, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
