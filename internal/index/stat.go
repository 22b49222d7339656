package index

import "io/fs"

// modTimeStat uses the modification time for both timestamps when no
// platform stat data is available.
func modTimeStat(info fs.FileInfo) stat {
	mt := info.ModTime()
	return stat{
		ctimeSec:  uint32(mt.Unix()),
		ctimeNsec: uint32(mt.Nanosecond()),
		mtimeSec:  uint32(mt.Unix()),
		mtimeNsec: uint32(mt.Nanosecond()),
	}
}
