// Пакет attr — чтение атрибутов файловой системы для записи метаданных.
// Один вызов lstat(2) даёт размер, время модификации, время доступа
// и тип файла. Результат — неизменяемый Snapshot, который переносится
// в model.FileRecord целиком через ApplyTo.
package attr

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

// Snapshot — атрибуты файла на момент одного чтения.
// Ровно один из флагов типа равен true.
type Snapshot struct {
	Size       int64
	ModTime    time.Time
	AccessTime time.Time

	Directory    bool
	Other        bool
	RegularFile  bool
	SymbolicLink bool
}

// Read читает атрибуты path без перехода по символической ссылке.
// Ошибки: model.ErrNotFound, model.ErrAccess, model.ErrIO.
func Read(path string) (*Snapshot, error) {
	snap, err := lstat(path)
	if err != nil {
		return nil, classify(path, err)
	}
	return snap, nil
}

// ApplyTo переносит снимок в запись: размер, оба времени и все четыре
// флага типа. Остальные поля записи не меняются.
func (s *Snapshot) ApplyTo(rec *model.FileRecord) {
	rec.Size = s.Size
	rec.LastUpdatedDate = s.ModTime
	rec.LastAccessDate = s.AccessTime
	rec.Directory = s.Directory
	rec.Other = s.Other
	rec.RegularFile = s.RegularFile
	rec.SymbolicLink = s.SymbolicLink
}

// setKind выставляет флаги типа. Всё, что не каталог, не обычный файл
// и не ссылка (сокеты, устройства, FIFO), считается Other.
func (s *Snapshot) setKind(dir, regular, symlink bool) {
	s.Directory = dir
	s.RegularFile = regular
	s.SymbolicLink = symlink
	s.Other = !dir && !regular && !symlink
}

// classify сопоставляет системную ошибку с доменной.
// syscall.Errno реализует Is для fs.ErrNotExist и fs.ErrPermission.
func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %v", model.ErrNotFound, path, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %v", model.ErrAccess, path, err)
	default:
		return fmt.Errorf("%w: lstat %s: %v", model.ErrIO, path, err)
	}
}
