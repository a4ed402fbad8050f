//go:build linux || darwin

package attr

import (
	"time"

	"golang.org/x/sys/unix"
)

func lstat(path string) (*Snapshot, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Size:       st.Size,
		ModTime:    time.Unix(st.Mtim.Unix()).UTC(),
		AccessTime: time.Unix(st.Atim.Unix()).UTC(),
	}

	switch uint32(st.Mode) & unix.S_IFMT {
	case unix.S_IFDIR:
		snap.setKind(true, false, false)
	case unix.S_IFREG:
		snap.setKind(false, true, false)
	case unix.S_IFLNK:
		snap.setKind(false, false, true)
	default:
		snap.setKind(false, false, false)
	}

	return snap, nil
}
