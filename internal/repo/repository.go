// internal/repo/repository.go
package repo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mgit/internal/errors"
	"mgit/internal/index"
	"mgit/internal/object"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	objectsDir = "objects"
	indexFile  = "index"
)

// Options configures Open.
type Options struct {
	CompressionLevel int
	CacheSize        int
	Workers          int // concurrent object writes in Add
	Logger           *zap.Logger
}

// Repository ties an object store and an index file to one store root. The
// work tree is the store root's parent; index paths are relative to it.
type Repository struct {
	Root     string
	WorkTree string
	Objects  *object.Store
	Index    *index.File
	Logger   *zap.Logger
	workers  int
}

// Recorded describes one path written to the index by Add.
type Recorded struct {
	Path     string
	Address  object.Address
	Replaced bool
}

// Open returns a repository for an existing store root.
func Open(root string, opts Options) (*Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}
	if info, err := os.Stat(filepath.Join(absRoot, objectsDir)); err != nil || !info.IsDir() {
		return nil, errors.NotFound("not a store root, objects directory missing", absRoot)
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	objects, err := object.NewStore(absRoot, object.Options{
		Level:     opts.CompressionLevel,
		CacheSize: opts.CacheSize,
		Logger:    opts.Logger.Named("objects"),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing object store: %w", err)
	}

	return &Repository{
		Root:     absRoot,
		WorkTree: filepath.Dir(absRoot),
		Objects:  objects,
		Index:    index.NewFile(filepath.Join(absRoot, indexFile), opts.Logger.Named("index")),
		Logger:   opts.Logger,
		workers:  opts.Workers,
	}, nil
}

// Store writes content to the object store.
func (r *Repository) Store(tag string, content []byte) (object.Address, error) {
	return r.Objects.Store(tag, content)
}

// Name converts a filesystem path into its index key: relative to the work
// tree, slash separated.
func (r *Repository) Name(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.InvalidPath("resolving path", path)
	}
	if abs == r.Root || strings.HasPrefix(abs, r.Root+string(filepath.Separator)) {
		return "", errors.InvalidPath("path is inside the store root", path)
	}

	rel, err := filepath.Rel(r.WorkTree, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.InvalidPath("path is outside the work tree", path)
	}
	name := filepath.ToSlash(rel)
	if err := index.ValidatePath(name); err != nil {
		return "", err
	}
	return name, nil
}

// RecordPath captures the current metadata of path and upserts it into the
// index with addr, rewriting the index file.
func (r *Repository) RecordPath(path string, addr object.Address) error {
	name, err := r.Name(path)
	if err != nil {
		return err
	}

	_, err = r.Index.Update(func(idx *index.Index) error {
		_, err := r.upsert(idx, target{path: path, name: name}, addr)
		return err
	})
	return err
}

type target struct {
	path string // filesystem path
	name string // index key
}

// Add stores every file named by paths, expanding directories, and records
// all of them in a single index update. Objects are written concurrently;
// the index is touched only after every object is stored.
func (r *Repository) Add(ctx context.Context, paths []string) ([]Recorded, error) {
	targets, err := r.expand(paths)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	addrs := make([]object.Address, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			addr, err := r.Objects.StoreFile(object.BlobTag, t.path)
			if err != nil {
				return err
			}
			addrs[i] = addr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recorded := make([]Recorded, len(targets))
	_, err = r.Index.Update(func(idx *index.Index) error {
		for i, t := range targets {
			replaced, err := r.upsert(idx, t, addrs[i])
			if err != nil {
				return err
			}
			recorded[i] = Recorded{Path: t.name, Address: addrs[i], Replaced: replaced}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.Logger.Debug("paths recorded", zap.Int("count", len(recorded)))
	return recorded, nil
}

func (r *Repository) upsert(idx *index.Index, t target, addr object.Address) (bool, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return false, errors.IOError("reading file metadata", t.path, err)
	}
	entry, err := index.NewEntry(t.name, info, addr)
	if err != nil {
		return false, err
	}
	replaced, err := idx.Upsert(entry)
	if err != nil {
		return false, err
	}

	r.Logger.Debug("index entry recorded",
		zap.String("path", t.name),
		zap.Stringer("address", addr),
		zap.Bool("replaced", replaced))
	return replaced, nil
}

// expand resolves paths to regular files, walking directories. Every name
// is validated before anything is written.
func (r *Repository) expand(paths []string) ([]target, error) {
	var targets []target
	seen := make(map[string]bool)

	add := func(path, name string) {
		if !seen[name] {
			seen[name] = true
			targets = append(targets, target{path: path, name: name})
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.IOError("reading path", p, err)
		}

		if !info.IsDir() {
			if !info.Mode().IsRegular() {
				return nil, errors.InvalidPath("not a regular file", p)
			}
			name, err := r.Name(p)
			if err != nil {
				return nil, err
			}
			add(p, name)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return errors.IOError("walking directory", path, err)
			}

			if abs, err := filepath.Abs(path); err == nil && abs == r.Root {
				return filepath.SkipDir
			}

			if d.IsDir() {
				if path != p && ShouldIgnore(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || ShouldIgnore(d.Name()) {
				return nil
			}

			name, err := r.Name(path)
			if err != nil {
				return err
			}
			add(path, name)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return targets, nil
}
