package index

import (
	stderrors "errors"
	"os"
	"path/filepath"

	"mgit/internal/errors"

	"go.uber.org/zap"
)

// File is the persisted index at a fixed path. It holds no entries itself;
// each update is a Load, Upsert, Save cycle. Concurrent cycles against the
// same file are not coordinated and the last Save wins.
type File struct {
	path   string
	logger *zap.Logger
}

func NewFile(path string, logger *zap.Logger) *File {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{path: path, logger: logger}
}

func (f *File) Path() string {
	return f.path
}

// Load reads the index. A missing file yields an empty index.
func (f *File) Load() (*Index, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.logger.Debug("no index file, starting empty", zap.String("path", f.path))
			return New(), nil
		}
		return nil, errors.IOError("reading index", f.path, err)
	}

	idx := New()
	if err := idx.UnmarshalBinary(data); err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) && e.Path == "" {
			e.Path = f.path
		}
		return nil, err
	}

	f.logger.Debug("index loaded", zap.String("path", f.path), zap.Int("entries", idx.Len()))
	return idx, nil
}

// Save replaces the index file with idx. The new contents become visible in
// one rename; on failure the previous file is left untouched.
func (f *File) Save(idx *Index) error {
	data, err := idx.MarshalBinary()
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "index-*.lock")
	if err != nil {
		return errors.IOError("creating temp index", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.IOError("writing index", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.IOError("syncing index", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.IOError("closing index", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return errors.IOError("setting index mode", tmpPath, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.IOError("replacing index", f.path, err)
	}

	f.logger.Debug("index saved",
		zap.String("path", f.path),
		zap.Int("entries", idx.Len()),
		zap.Int("bytes", len(data)))
	return nil
}

// Update runs one load, mutate, save cycle.
func (f *File) Update(mutate func(*Index) error) (*Index, error) {
	idx, err := f.Load()
	if err != nil {
		return nil, err
	}
	if err := mutate(idx); err != nil {
		return nil, err
	}
	if err := f.Save(idx); err != nil {
		return nil, err
	}
	return idx, nil
}
