package index

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"mgit/internal/errors"
	"mgit/internal/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(path string) Entry {
	return Entry{
		CTimeSec:  1700000000,
		CTimeNsec: 123,
		MTimeSec:  1700000001,
		MTimeNsec: 456,
		Dev:       66306,
		Ino:       uint32(len(path)) * 7,
		Mode:      ModeRegular,
		UID:       1000,
		GID:       1000,
		Size:      uint32(len(path)),
		Address:   object.Hash("blob", []byte(path)),
		Flags:     pathFlags(path),
		Path:      path,
	}
}

func paths(idx *Index) []string {
	var out []string
	for _, e := range idx.Entries() {
		out = append(out, e.Path)
	}
	return out
}

func TestUpsertKeepsByteOrder(t *testing.T) {
	idx := New()
	for _, p := range []string{"ab", "a/b", "ä", "B", "a.b", "a"} {
		replaced, err := idx.Upsert(testEntry(p))
		require.NoError(t, err)
		assert.False(t, replaced)
	}

	assert.Equal(t, []string{"B", "a", "a.b", "a/b", "ab", "ä"}, paths(idx))
}

func TestUpsertRandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	idx := New()
	seen := map[string]bool{}

	for i := 0; i < 500; i++ {
		p := fmt.Sprintf("dir%d/file%d.txt", rng.Intn(10), rng.Intn(40))
		_, err := idx.Upsert(testEntry(p))
		require.NoError(t, err)
		seen[p] = true

		got := paths(idx)
		require.True(t, sort.SliceIsSorted(got, func(a, b int) bool { return got[a] < got[b] }))
	}

	got := paths(idx)
	assert.Len(t, got, len(seen))
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i])
	}
}

func TestUpsertReplacesInPlace(t *testing.T) {
	idx := New()
	for _, p := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := idx.Upsert(testEntry(p))
		require.NoError(t, err)
	}

	updated := testEntry("b.txt")
	updated.Size = 9999
	updated.Address = object.Hash("blob", []byte("new contents"))

	replaced, err := idx.Upsert(updated)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, paths(idx))

	got, ok := idx.Find("b.txt")
	require.True(t, ok)
	assert.Equal(t, updated, got)

	_, ok = idx.Find("d.txt")
	assert.False(t, ok)
}

func TestUpsertRejectsInvalidPath(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"nul", "a\x00b"},
		{"absolute", "/etc/passwd"},
		{"too long", strings.Repeat("x", MaxPathLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := New()
			e := testEntry("placeholder")
			e.Path = tt.path

			_, err := idx.Upsert(e)
			assert.ErrorIs(t, err, errors.ErrInvalidPath)
			assert.Equal(t, 0, idx.Len())
		})
	}

	idx := New()
	_, err := idx.Upsert(testEntry(strings.Repeat("x", MaxPathLength)))
	assert.NoError(t, err)
}

func TestEntriesIsACopy(t *testing.T) {
	idx := New()
	_, err := idx.Upsert(testEntry("a"))
	require.NoError(t, err)

	entries := idx.Entries()
	entries[0].Path = "zzz"

	_, ok := idx.Find("a")
	assert.True(t, ok)
}

func TestNewEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))
	mtime := time.Unix(1700000000, 987654321)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	info, err := os.Stat(path)
	require.NoError(t, err)

	addr := object.Hash("blob", []byte("hello"))
	e, err := NewEntry("docs/file.txt", info, addr)
	require.NoError(t, err)

	assert.Equal(t, "docs/file.txt", e.Path)
	assert.Equal(t, uint16(len("docs/file.txt")), e.Flags)
	assert.Equal(t, ModeRegular, e.Mode)
	assert.Equal(t, uint32(5), e.Size)
	assert.Equal(t, addr, e.Address)
	assert.Equal(t, uint32(1700000000), e.MTimeSec)
	assert.Equal(t, uint32(987654321), e.MTimeNsec)

	_, err = NewEntry("docs/file.txt", mustStat(t, dir), addr)
	assert.ErrorIs(t, err, errors.ErrInvalidPath, "directories are rejected")

	_, err = NewEntry("bad\x00name", info, addr)
	assert.ErrorIs(t, err, errors.ErrInvalidPath)
}

func mustStat(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info
}

func TestPathFlagsCapped(t *testing.T) {
	assert.Equal(t, uint16(0), pathFlags(""))
	assert.Equal(t, uint16(7), pathFlags("abc/def"))
	assert.Equal(t, uint16(MaxPathLength), pathFlags(strings.Repeat("a", MaxPathLength)))
	assert.Equal(t, uint16(MaxPathLength), pathFlags(strings.Repeat("a", MaxPathLength+50)))
}
