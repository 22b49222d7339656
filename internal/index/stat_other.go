//go:build !linux

package index

import "io/fs"

func statOf(info fs.FileInfo) stat {
	return modTimeStat(info)
}
