// Пакет placement — выбор имени и пути файла на диске при загрузке.
// Чистые функции без ввода-вывода. Корневая директория по умолчанию
// передаётся в конструктор (FM_DEFAULT_ROOT), глобального состояния нет.
package placement

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bigkaa/goartstore/file-metadata/internal/domain/model"
)

// Resolver — вычисляет имя и полный путь файла.
type Resolver struct {
	// defaultRoot — директория по умолчанию, всегда с завершающим разделителем
	defaultRoot string
}

// New создаёт Resolver. defaultRoot приводится к виду NormalizeDir.
func New(defaultRoot string) *Resolver {
	return &Resolver{defaultRoot: NormalizeDir(defaultRoot)}
}

// NormalizeDir очищает путь директории (filepath.Clean) и добавляет
// завершающий разделитель. Пустая строка остаётся пустой.
// Единственная нормализация корня: ею пользуются config, placement и filestore.
func NormalizeDir(dir string) string {
	if dir == "" {
		return ""
	}
	dir = filepath.Clean(dir)
	if strings.HasSuffix(dir, string(os.PathSeparator)) {
		return dir
	}
	return dir + string(os.PathSeparator)
}

// DefaultRoot возвращает нормализованную директорию по умолчанию.
func (r *Resolver) DefaultRoot() string {
	return r.defaultRoot
}

// ResolveName возвращает имя, под которым файл будет сохранён и проиндексирован.
// Приоритет: requested (если не пустое после TrimSpace), затем original.
// Имя должно включать расширение — оно используется как имя файла на диске.
func (r *Resolver) ResolveName(requested, original string) (string, error) {
	name := strings.TrimSpace(requested)
	if name == "" {
		name = strings.TrimSpace(original)
	}
	if name == "" {
		return "", fmt.Errorf("%w: не задано ни имя, ни оригинальное имя файла", model.ErrInvalidName)
	}

	// Имя становится последним сегментом пути: запрещаем выход за директорию
	if name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidName, name)
	}

	return name, nil
}

// ResolvePath возвращает полный путь: baseDirectory + name.
// Пустой baseDirectory заменяется директорией по умолчанию.
// Результат очищен (filepath.Clean) и совпадает с путями обхода ФС.
func (r *Resolver) ResolvePath(baseDirectory, name string) string {
	base := strings.TrimSpace(baseDirectory)
	if base == "" {
		base = r.defaultRoot
	}
	return filepath.Join(base, name)
}
