//go:build !linux && !darwin

package filestore

import (
	"errors"
	"fmt"
	"os"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

// DiskUsage не поддерживается на этой платформе.
func (s *FileStore) DiskUsage() (total, used, available int64, err error) {
	return 0, 0, 0, errors.New("statfs не поддерживается на этой платформе")
}

// CheckWritable проверяет, что директория по умолчанию существует.
func (s *FileStore) CheckWritable() error {
	info, err := os.Stat(s.defaultRoot)
	if err != nil {
		return classify("проверка директории", s.defaultRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s не является директорией", model.ErrNoSuchPath, s.defaultRoot)
	}
	return nil
}
