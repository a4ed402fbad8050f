//go:build linux || darwin

package filestore

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskUsage возвращает ёмкость файловой системы директории по умолчанию:
// total, used, available в байтах.
func (s *FileStore) DiskUsage() (total, used, available int64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(s.defaultRoot, &stat); err != nil {
		return 0, 0, 0, fmt.Errorf("ошибка statfs %s: %w", s.defaultRoot, err)
	}

	total = int64(stat.Blocks) * int64(stat.Bsize)
	available = int64(stat.Bavail) * int64(stat.Bsize)
	used = total - available

	return total, used, available, nil
}

// CheckWritable проверяет право записи в директорию по умолчанию.
func (s *FileStore) CheckWritable() error {
	if err := unix.Access(s.defaultRoot, unix.W_OK|unix.X_OK); err != nil {
		return classify("проверка прав записи", s.defaultRoot, err)
	}
	return nil
}
