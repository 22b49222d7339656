// Package index maintains the sorted, checksummed table of tracked paths.
//
// On-disk layout, all integers big-endian:
//
//	header   "DIRC" | version (2) | entry count          12 bytes
//	entry    ctime s/ns | mtime s/ns | dev | ino | mode |
//	         uid | gid | size                             40 bytes
//	         address                                      32 bytes
//	         flags (path length, capped at 0xFFF)          2 bytes
//	         path | NUL | NUL padding to a multiple of 8
//	trailer  SHA-256 of everything above                  32 bytes
package index

import (
	"slices"
	"strings"
)

// Index is an ordered set of entries keyed by path. Paths are unique and kept
// in strictly increasing byte order.
type Index struct {
	entries []Entry
}

func New() *Index {
	return &Index{}
}

func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns a copy of the entries in path order.
func (idx *Index) Entries() []Entry {
	return slices.Clone(idx.entries)
}

// Find returns the entry recorded for path.
func (idx *Index) Find(path string) (Entry, bool) {
	i, found := idx.search(path)
	if !found {
		return Entry{}, false
	}
	return idx.entries[i], true
}

// Upsert inserts e, or replaces the entry with the same path. It reports
// whether an existing entry was replaced.
func (idx *Index) Upsert(e Entry) (bool, error) {
	if err := ValidatePath(e.Path); err != nil {
		return false, err
	}

	i, found := idx.search(e.Path)
	if found {
		idx.entries[i] = e
		return true, nil
	}
	idx.entries = slices.Insert(idx.entries, i, e)
	return false, nil
}

func (idx *Index) search(path string) (int, bool) {
	return slices.BinarySearchFunc(idx.entries, path, func(e Entry, p string) int {
		return strings.Compare(e.Path, p)
	})
}
