// internal/object/store.go
package object

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"mgit/internal/errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// BlobTag is the type tag used for file contents.
const BlobTag = "blob"

// Options configures a Store.
type Options struct {
	Level     int // zstd compression level
	CacheSize int // number of known-present addresses to remember
	Logger    *zap.Logger
}

// Store persists compressed tagged payloads under <root>/objects/xx/yyyy...
// It is safe for concurrent use: writes of the same address produce identical
// files and land via rename.
type Store struct {
	dir    string
	codec  *codec
	known  *lru.Cache[Address, struct{}]
	logger *zap.Logger
}

// NewStore returns a store rooted at root. The objects directory is expected
// to exist already.
func NewStore(root string, opts Options) (*Store, error) {
	if opts.Level == 0 {
		opts.Level = 3
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c, err := newCodec(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("creating codec: %w", err)
	}

	known, err := lru.New[Address, struct{}](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Store{
		dir:    filepath.Join(root, "objects"),
		codec:  c,
		known:  known,
		logger: opts.Logger,
	}, nil
}

// Path returns the file an address is stored in.
func (s *Store) Path(a Address) string {
	hex := a.String()
	return filepath.Join(s.dir, hex[:2], hex[2:])
}

// Store writes content under tag and returns its address. Storing the same
// tag and content again returns the same address without rewriting the file.
func (s *Store) Store(tag string, content []byte) (Address, error) {
	if err := validateTag(tag); err != nil {
		return Address{}, err
	}

	payload := Tagged(tag, content)
	addr := Address(sha256.Sum256(payload))
	path := s.Path(addr)

	if s.known.Contains(addr) {
		return addr, nil
	}
	if _, err := os.Stat(path); err == nil {
		s.known.Add(addr, struct{}{})
		s.logger.Debug("object already present", zap.Stringer("address", addr))
		return addr, nil
	} else if !os.IsNotExist(err) {
		return Address{}, errors.IOError("checking object", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Address{}, errors.IOError("creating object directory", filepath.Dir(path), err)
	}
	if err := writeAtomic(path, s.codec.compress(payload)); err != nil {
		return Address{}, err
	}

	s.known.Add(addr, struct{}{})
	s.logger.Debug("object written",
		zap.Stringer("address", addr),
		zap.String("tag", tag),
		zap.Int("size", len(content)))
	return addr, nil
}

// StoreFile reads path and stores its bytes under tag.
func (s *Store) StoreFile(tag, path string) (Address, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Address{}, errors.IOError("reading file", path, err)
	}
	return s.Store(tag, content)
}

// Read loads an object and returns its tag and content, verifying the header
// and the address.
func (s *Store) Read(a Address) (string, []byte, error) {
	path := s.Path(a)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, errors.NotFound("object not found", a.String())
		}
		return "", nil, errors.IOError("reading object", path, err)
	}

	payload, err := s.codec.decompress(data)
	if err != nil {
		return "", nil, errors.CorruptObject("decompressing object", a.String(), err)
	}
	if Address(sha256.Sum256(payload)) != a {
		return "", nil, errors.CorruptObject("object hash mismatch", a.String(), nil)
	}

	nul := bytes.IndexByte(payload, 0)
	if nul < 0 {
		return "", nil, errors.CorruptObject("object header not terminated", a.String(), nil)
	}
	tag, size, ok := bytes.Cut(payload[:nul], []byte{' '})
	if !ok || len(tag) == 0 {
		return "", nil, errors.CorruptObject("malformed object header", a.String(), nil)
	}
	n, err := strconv.Atoi(string(size))
	content := payload[nul+1:]
	if err != nil || n != len(content) {
		return "", nil, errors.CorruptObject("object length does not match header", a.String(), err)
	}

	s.known.Add(a, struct{}{})
	return string(tag), content, nil
}

// Exists reports whether an object file is present for a.
func (s *Store) Exists(a Address) (bool, error) {
	if s.known.Contains(a) {
		return true, nil
	}

	_, err := os.Stat(s.Path(a))
	if err == nil {
		s.known.Add(a, struct{}{})
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.IOError("checking object", s.Path(a), err)
}

// writeAtomic writes data to a temp file beside path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tmp_obj_*")
	if err != nil {
		return errors.IOError("creating temp object", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.IOError("writing object", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.IOError("writing object", path, err)
	}
	if err := os.Chmod(tmpPath, 0444); err != nil {
		_ = os.Remove(tmpPath)
		return errors.IOError("setting object mode", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Another writer may have won the race with identical bytes.
		if _, statErr := os.Stat(path); statErr == nil {
			_ = os.Remove(tmpPath)
			return nil
		}
		_ = os.Remove(tmpPath)
		return errors.IOError("renaming object", path, err)
	}
	return nil
}
