//go:build !linux && !darwin

package attr

import "os"

// lstat — переносимый вариант через os.Lstat. Время доступа
// недоступно без платформенных структур, берётся время модификации.
func lstat(path string) (*Snapshot, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}

	mode := info.Mode()
	snap := &Snapshot{
		Size:       info.Size(),
		ModTime:    info.ModTime().UTC(),
		AccessTime: info.ModTime().UTC(),
	}
	snap.setKind(mode.IsDir(), mode.IsRegular(), mode&os.ModeSymlink != 0)

	return snap, nil
}
