package index

import (
	"io/fs"
	"strings"

	"mgit/internal/errors"
	"mgit/internal/object"
)

const (
	// MaxPathLength is the largest path length the flags field can encode.
	MaxPathLength = 0xFFF

	// ModeRegular is the only mode recorded: regular file, rw-r--r--.
	ModeRegular uint32 = 0o100644
)

// Entry is one tracked path. All metadata fields are truncated to 32 bits.
type Entry struct {
	CTimeSec  uint32
	CTimeNsec uint32
	MTimeSec  uint32
	MTimeNsec uint32
	Dev       uint32
	Ino       uint32
	Mode      uint32
	UID       uint32
	GID       uint32
	Size      uint32
	Address   object.Address
	Flags     uint16
	Path      string
}

// NewEntry packages the stat info of a regular file with its address.
func NewEntry(path string, info fs.FileInfo, addr object.Address) (Entry, error) {
	if err := ValidatePath(path); err != nil {
		return Entry{}, err
	}
	if !info.Mode().IsRegular() {
		return Entry{}, errors.InvalidPath("not a regular file", path)
	}

	st := statOf(info)
	return Entry{
		CTimeSec:  st.ctimeSec,
		CTimeNsec: st.ctimeNsec,
		MTimeSec:  st.mtimeSec,
		MTimeNsec: st.mtimeNsec,
		Dev:       st.dev,
		Ino:       st.ino,
		Mode:      ModeRegular,
		UID:       st.uid,
		GID:       st.gid,
		Size:      uint32(info.Size()),
		Address:   addr,
		Flags:     pathFlags(path),
		Path:      path,
	}, nil
}

// ValidatePath rejects paths that cannot be stored in an entry.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return errors.InvalidPath("path must not be empty", path)
	case strings.IndexByte(path, 0) >= 0:
		return errors.InvalidPath("path contains NUL", path)
	case strings.HasPrefix(path, "/"):
		return errors.InvalidPath("path must be relative", path)
	case len(path) > MaxPathLength:
		return errors.InvalidPath("path longer than 4095 bytes", path[:64]+"...")
	}
	return nil
}

func pathFlags(path string) uint16 {
	return uint16(min(len(path), MaxPathLength))
}

type stat struct {
	ctimeSec, ctimeNsec uint32
	mtimeSec, mtimeNsec uint32
	dev, ino            uint32
	uid, gid            uint32
}
