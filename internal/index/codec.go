package index

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"mgit/internal/errors"
	"mgit/internal/object"
)

const (
	signature = "DIRC"
	version   = 2

	headerSize   = 12
	metaSize     = 40
	prefixSize   = metaSize + object.AddressSize + 2
	checksumSize = sha256.Size
)

// entrySize is the encoded length of an entry with a path of n bytes,
// including the NUL terminator and padding.
func entrySize(n int) int {
	size := prefixSize + n + 1
	return size + padding(size)
}

func padding(size int) int {
	return (8 - size%8) % 8
}

// MarshalBinary encodes the index including its trailing checksum.
func (idx *Index) MarshalBinary() ([]byte, error) {
	size := headerSize + checksumSize
	for _, e := range idx.entries {
		size += entrySize(len(e.Path))
	}

	buf := make([]byte, 0, size)
	buf = append(buf, signature...)
	buf = binary.BigEndian.AppendUint32(buf, version)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(idx.entries)))

	for _, e := range idx.entries {
		if err := ValidatePath(e.Path); err != nil {
			return nil, err
		}
		start := len(buf)
		for _, v := range [...]uint32{
			e.CTimeSec, e.CTimeNsec,
			e.MTimeSec, e.MTimeNsec,
			e.Dev, e.Ino, e.Mode,
			e.UID, e.GID, e.Size,
		} {
			buf = binary.BigEndian.AppendUint32(buf, v)
		}
		buf = append(buf, e.Address[:]...)
		buf = binary.BigEndian.AppendUint16(buf, e.Flags)
		buf = append(buf, e.Path...)
		buf = append(buf, 0)
		for n := padding(len(buf) - start); n > 0; n-- {
			buf = append(buf, 0)
		}
	}

	sum := sha256.Sum256(buf)
	return append(buf, sum[:]...), nil
}

// UnmarshalBinary replaces idx with the entries decoded from data. Any
// structural problem or checksum mismatch is reported as CorruptIndex.
func (idx *Index) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize+checksumSize {
		return corrupt("index is %d bytes, shorter than header and checksum", len(data))
	}
	if string(data[:4]) != signature {
		return corrupt("bad signature %q", data[:4])
	}
	if v := binary.BigEndian.Uint32(data[4:8]); v != version {
		return corrupt("unsupported version %d", v)
	}
	count := binary.BigEndian.Uint32(data[8:12])

	body := data[:len(data)-checksumSize]
	// Every entry takes at least 80 bytes; reject counts the body cannot hold
	// before allocating for them.
	if uint64(count) > uint64(len(body)-headerSize)/uint64(entrySize(0)) {
		return corrupt("entry count %d exceeds file size", count)
	}

	entries := make([]Entry, 0, count)
	off := headerSize
	for i := uint32(0); i < count; i++ {
		e, n, err := decodeEntry(body[off:])
		if err != nil {
			return corrupt("entry %d at offset %d: %v", i, off, err)
		}
		if len(entries) > 0 && entries[len(entries)-1].Path >= e.Path {
			return corrupt("entry %d (%s) out of order", i, e.Path)
		}
		entries = append(entries, e)
		off += n
	}
	if off != len(body) {
		return corrupt("%d unexpected bytes after entries", len(body)-off)
	}

	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], data[len(body):]) {
		return corrupt("checksum mismatch")
	}

	idx.entries = entries
	return nil
}

func decodeEntry(b []byte) (Entry, int, error) {
	if len(b) < prefixSize+1 {
		return Entry{}, 0, fmt.Errorf("truncated entry")
	}

	var fields [10]uint32
	for i := range fields {
		fields[i] = binary.BigEndian.Uint32(b[i*4:])
	}
	e := Entry{
		CTimeSec:  fields[0],
		CTimeNsec: fields[1],
		MTimeSec:  fields[2],
		MTimeNsec: fields[3],
		Dev:       fields[4],
		Ino:       fields[5],
		Mode:      fields[6],
		UID:       fields[7],
		GID:       fields[8],
		Size:      fields[9],
	}
	copy(e.Address[:], b[metaSize:metaSize+object.AddressSize])
	e.Flags = binary.BigEndian.Uint16(b[metaSize+object.AddressSize:])

	nul := bytes.IndexByte(b[prefixSize:], 0)
	if nul < 0 {
		return Entry{}, 0, fmt.Errorf("unterminated path")
	}
	if nul == 0 {
		return Entry{}, 0, fmt.Errorf("empty path")
	}
	e.Path = string(b[prefixSize : prefixSize+nul])

	n := entrySize(nul)
	if n > len(b) {
		return Entry{}, 0, fmt.Errorf("truncated padding")
	}
	for _, c := range b[prefixSize+nul+1 : n] {
		if c != 0 {
			return Entry{}, 0, fmt.Errorf("non-zero padding")
		}
	}
	return e, n, nil
}

func corrupt(format string, args ...any) error {
	return errors.CorruptIndex(fmt.Sprintf(format, args...), "")
}
