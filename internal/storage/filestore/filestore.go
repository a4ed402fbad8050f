// Пакет filestore — запись и чтение байтов загруженных файлов на диске.
// Полный путь файла вычисляет placement.Resolver, filestore отвечает
// только за ввод-вывод и классификацию ошибок файловой системы.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
	"github.com/bigkaa/goartstore/file-metadata/internal/storage/placement"
)

// tmpSuffix — суффикс временного файла на время записи.
// Полное имя: .<имя>.<случайное число>.tmp (os.CreateTemp).
const tmpSuffix = ".tmp"

// FileStore — операции с физическими файлами.
type FileStore struct {
	// defaultRoot — директория по умолчанию (FM_DEFAULT_ROOT), с разделителем в конце
	defaultRoot string
}

// New создаёт FileStore и директорию по умолчанию, если её нет.
func New(defaultRoot string) (*FileStore, error) {
	if err := os.MkdirAll(defaultRoot, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", defaultRoot, err)
	}
	return &FileStore{defaultRoot: placement.NormalizeDir(defaultRoot)}, nil
}

// DefaultRoot возвращает директорию по умолчанию.
func (s *FileStore) DefaultRoot() string {
	return s.defaultRoot
}

// Staged — полностью записанный временный файл рядом с целевым путём.
// По целевому пути байты появляются только после Commit.
type Staged struct {
	path    string
	tmpPath string
	size    int64
	// done — файл опубликован или удалён
	done bool
}

// TempPath возвращает путь временного файла.
func (st *Staged) TempPath() string { return st.tmpPath }

// Size возвращает число записанных байт.
func (st *Staged) Size() int64 { return st.size }

// Commit переименовывает временный файл в целевой путь.
// Существующий файл по целевому пути заменяется.
func (st *Staged) Commit() error {
	if err := os.Rename(st.tmpPath, st.path); err != nil {
		os.Remove(st.tmpPath)
		return classify("переименование", st.path, err)
	}
	st.done = true
	return nil
}

// Discard удаляет временный файл. После Commit ничего не делает.
func (st *Staged) Discard() {
	if st.done {
		return
	}
	os.Remove(st.tmpPath)
	st.done = true
}

// Stage записывает содержимое r во временный файл в директории path.
//
// Отсутствующая родительская директория внутри директории по умолчанию
// создаётся; в любом другом месте возвращается model.ErrNoSuchPath.
//
// Паттерн: temp файл с уникальным именем → запись → fsync. Файл по path
// не затрагивается до Commit. При ошибке temp файл удаляется.
func (s *FileStore) Stage(path string, r io.Reader) (*Staged, error) {
	if err := s.ensureParent(path); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*"+tmpSuffix)
	if err != nil {
		return nil, classify("создание временного файла", path, err)
	}
	tmpPath := f.Name()

	fail := func(op string, err error) (*Staged, error) {
		f.Close()
		os.Remove(tmpPath)
		return nil, classify(op, path, err)
	}

	if err := f.Chmod(0o640); err != nil {
		return fail("установка прав", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		return fail("запись данных", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		return fail("fsync", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, classify("закрытие файла", path, err)
	}

	return &Staged{path: path, tmpPath: tmpPath, size: size}, nil
}

// Open открывает файл для последовательного чтения.
// Вызывающий код обязан закрыть файл.
func (s *FileStore) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classify("открытие файла", path, err)
	}
	return f, nil
}

// ScanDefaultRoot возвращает размеры всех обычных файлов в директории
// по умолчанию (рекурсивно). Временные файлы незавершённых записей пропускаются.
func (s *FileStore) ScanDefaultRoot() (map[string]int64, error) {
	files := make(map[string]int64)

	err := filepath.WalkDir(s.defaultRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || isStagingName(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// Файл удалён во время обхода
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		files[path] = info.Size()
		return nil
	})
	if err != nil {
		return nil, classify("сканирование директории", s.defaultRoot, err)
	}

	return files, nil
}

// ensureParent проверяет родительскую директорию path.
func (s *FileStore) ensureParent(path string) error {
	dir := filepath.Dir(path)

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%w: %s не является директорией", model.ErrNoSuchPath, dir)
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return classify("проверка директории", dir, err)
	}

	if !strings.HasPrefix(path, s.defaultRoot) {
		return fmt.Errorf("%w: %s", model.ErrNoSuchPath, dir)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return classify("создание директории", dir, err)
	}
	return nil
}

// isStagingName распознаёт имя временного файла Stage: .<имя>.<число>.tmp.
func isStagingName(name string) bool {
	if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, tmpSuffix) {
		return false
	}
	rest := strings.TrimSuffix(name[1:], tmpSuffix)
	dot := strings.LastIndexByte(rest, '.')
	if dot <= 0 || dot == len(rest)-1 {
		return false
	}
	for _, c := range rest[dot+1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// classify оборачивает ошибку ФС в доменную.
func classify(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s %s: %v", model.ErrNotFound, op, path, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s %s: %v", model.ErrAccess, op, path, err)
	default:
		return fmt.Errorf("%w: %s %s: %v", model.ErrIO, op, path, err)
	}
}
